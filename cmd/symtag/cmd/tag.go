package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TomMcIver/Stock-Port/internal/app"
	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

type tagOptions struct {
	title      string
	body       string
	documentID string
	asJSON     bool
	candidates bool
	persist    bool
	start      app.Options
}

type tagOutput struct {
	DocumentID string                `json:"document_id,omitempty"`
	Results    []models.TaggedResult `json:"results"`
	Candidates []string              `json:"candidates,omitempty"`
	Persist    *models.PersistReport `json:"persist,omitempty"`
}

func newTagCommand(root *rootOptions) *cobra.Command {
	opts := &tagOptions{}

	command := &cobra.Command{
		Use:   "tag",
		Short: "Tag a single document; the body is read from stdin when --body is empty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.body == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				opts.body = string(data)
			}
			if opts.persist && opts.documentID == "" {
				return fmt.Errorf("--persist needs --id")
			}
			return runTag(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}
	flags := command.Flags()
	flags.StringVar(&opts.title, "title", "", "document title")
	flags.StringVar(&opts.body, "body", "", "document body")
	flags.StringVar(&opts.documentID, "id", "", "document id, required with --persist")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	flags.BoolVar(&opts.candidates, "candidates", false, "also print the reference-free candidate symbols")
	flags.BoolVar(&opts.persist, "persist", false, "store the associations")
	flags.BoolVar(&opts.start.Offline, "offline", false, "use an in-memory reference store")
	flags.StringVar(&opts.start.SeedPath, "seed", "", "securities YAML for the in-memory store")
	return command
}

func runTag(ctx context.Context, root *rootOptions, opts *tagOptions, out io.Writer) error {
	ctx = appctx.SetOrigin(ctx, appctx.OriginCLI)
	if opts.documentID != "" {
		ctx = appctx.SetDocumentID(ctx, opts.documentID)
	}

	a, err := app.New(root.cfg, root.logger)
	if err != nil {
		return err
	}
	if err := a.Start(ctx, opts.start); err != nil {
		return err
	}
	defer func() { _ = a.Stop(context.WithoutCancel(ctx)) }()

	output := tagOutput{
		DocumentID: opts.documentID,
		Results:    a.Engine.TagDocument(ctx, opts.title, opts.body, opts.documentID),
	}
	if opts.candidates {
		output.Candidates = a.Engine.Candidates(opts.title, opts.body)
	}
	if opts.persist {
		report := a.Adapter.Persist(ctx, opts.documentID, output.Results)
		output.Persist = &report
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}
	printTagTable(out, output)
	return nil
}

var (
	headerColor = color.New(color.FgWhite, color.Bold)
	symbolColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
)

func confidenceColor(confidence float64) *color.Color {
	switch {
	case confidence >= 0.9:
		return color.New(color.FgGreen)
	case confidence >= 0.6:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// printTagTable pads before colouring so escape codes never break alignment
func printTagTable(out io.Writer, output tagOutput) {
	if len(output.Results) == 0 {
		dimColor.Fprintln(out, "no symbols found")
	} else {
		headerColor.Fprintf(out, "%-6s  %-10s  %-14s  %5s  %s\n", "SYMBOL", "CONFIDENCE", "METHOD", "COUNT", "COMPANY / CONTEXT")
		for _, r := range output.Results {
			symbolColor.Fprintf(out, "%-6s", r.Symbol)
			fmt.Fprint(out, "  ")
			confidenceColor(r.FinalConfidence).Fprintf(out, "%-10.4f", r.FinalConfidence)
			fmt.Fprintf(out, "  %-14s  %5d  ", r.DominantMethod, r.MentionCount)
			if r.BestCompanyName != "" {
				fmt.Fprint(out, r.BestCompanyName)
			} else {
				dimColor.Fprint(out, truncate(r.FirstContext(), 60))
			}
			fmt.Fprintln(out)
		}
	}

	if len(output.Candidates) > 0 {
		fmt.Fprintf(out, "\ncandidates: %s\n", strings.Join(output.Candidates, " "))
	}

	if p := output.Persist; p != nil {
		fmt.Fprintln(out)
		color.New(color.FgGreen).Fprintf(out, "associated %d", p.Associated)
		fmt.Fprintf(out, "  already %d  below threshold %d  new securities %d", p.AlreadyAssociated, p.BelowThreshold, p.SecuritiesCreated)
		if p.Failed > 0 {
			color.New(color.FgRed).Fprintf(out, "  failed %d (%s)", p.Failed, strings.Join(p.FailedSymbols, ", "))
		}
		fmt.Fprintln(out)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
