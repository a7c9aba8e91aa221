package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TomMcIver/Stock-Port/internal/app"
	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
	"github.com/TomMcIver/Stock-Port/pkg/lexicon"
)

func newSeedCommand(root *rootOptions) *cobra.Command {
	var file string

	command := &cobra.Command{
		Use:   "seed",
		Short: "Load securities from a YAML file into the reference store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := appctx.SetOrigin(cmd.Context(), appctx.OriginCLI)

			seeds, err := lexicon.LoadSecurities(file)
			if err != nil {
				return err
			}

			a, err := app.New(root.cfg, root.logger)
			if err != nil {
				return err
			}
			if err := a.OpenStore(ctx); err != nil {
				return err
			}
			defer func() {
				if a.Store.Close != nil {
					_ = a.Store.Close()
				}
			}()

			report, err := app.SeedSecurities(ctx, root.logger, a.Store.Securities, seeds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "created %d", report.Created)
			color.New(color.FgYellow).Fprintf(out, "  existing %d", report.Existing)
			color.New(color.FgCyan).Fprintf(out, "  aliases merged %d\n", report.AliasesMerged)
			return nil
		},
	}
	command.Flags().StringVarP(&file, "file", "f", "", "securities YAML; the built-in sample when empty")
	return command
}
