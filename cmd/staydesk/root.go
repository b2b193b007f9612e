package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/smallbiznis/staydesk/internal/clock"
	"github.com/smallbiznis/staydesk/internal/config"
	"github.com/smallbiznis/staydesk/internal/observability"
	"github.com/smallbiznis/staydesk/pkg/db"
	"github.com/smallbiznis/staydesk/pkg/lock"
	"github.com/smallbiznis/staydesk/pkg/redisclient"
)

var nodeID int64

var rootCmd = &cobra.Command{
	Use:   "staydesk",
	Short: "Staydesk hotel platform: plans, entitlements and provider routing",
	Long: `staydesk serves the tenant API, runs the monthly usage reset and
manages the database schema for the hotel SaaS platform.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&nodeID, "node-id", 1, "snowflake node id for generated ids")
	rootCmd.AddCommand(serveCmd, migrateCmd, plansCmd, resetUsageCmd)
}

// infrastructure is shared by every command that touches storage.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		redisclient.Module,
		lock.Module,
		clock.Module,
	)
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}
