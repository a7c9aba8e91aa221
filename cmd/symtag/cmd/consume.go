package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/TomMcIver/Stock-Port/internal/app"
	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
)

func newConsumeCommand(root *rootOptions) *cobra.Command {
	opts := app.Options{Consume: true}

	command := &cobra.Command{
		Use:   "consume",
		Short: "Tag articles from Kafka without serving HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ctx = appctx.SetOrigin(ctx, appctx.OriginKafka)

			shutdownTracing, err := setupTracing(ctx, root)
			if err != nil {
				return err
			}
			defer shutdownTracing()

			a, err := app.New(root.cfg, root.logger)
			if err != nil {
				return err
			}
			if err := a.Start(ctx, opts); err != nil {
				return err
			}

			<-ctx.Done()
			root.logger.Info("Shutting down")
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return a.Stop(stopCtx)
		},
	}
	command.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply Postgres migrations before starting")
	return command
}
