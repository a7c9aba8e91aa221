package cmd

import (
	"github.com/spf13/cobra"

	"github.com/TomMcIver/Stock-Port/internal/app"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(root.cfg, root.logger)
			if err != nil {
				return err
			}
			return a.Migrate(cmd.Context())
		},
	}
}
