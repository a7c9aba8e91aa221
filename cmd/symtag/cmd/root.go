// Package cmd holds the symtag command line
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/TomMcIver/Stock-Port/config"
	"github.com/TomMcIver/Stock-Port/internal/app"
)

type rootOptions struct {
	envFile string
	cfg     config.Config
	logger  ectologger.Logger
	sync    func()
}

// NewRootCommand builds the symtag command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "symtag",
		Short:        "Tag news text with the stock symbols it mentions",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			logger, sync, err := app.NewLogger(cfg)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			opts.sync = sync
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.sync != nil {
				opts.sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file read before the environment")

	root.AddCommand(
		newServeCommand(opts),
		newConsumeCommand(opts),
		newTagCommand(opts),
		newMigrateCommand(opts),
		newSeedCommand(opts),
	)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
