package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/smallbiznis/staydesk/internal/migration"
	"github.com/smallbiznis/staydesk/internal/scheduler"
	"github.com/smallbiznis/staydesk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the usage reset scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			infrastructure(),
			migration.Module,
			server.Module,
			scheduler.Module,
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}
