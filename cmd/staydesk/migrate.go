package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/staydesk/internal/config"
	"github.com/smallbiznis/staydesk/internal/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			conn *gorm.DB
			cfg  config.Config
			log  *zap.Logger
		)
		app := fx.New(
			infrastructure(),
			fx.Populate(&conn, &cfg, &log),
			fx.NopLogger,
		)
		if err := app.Err(); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := app.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = app.Stop(context.Background()) }()

		if err := migration.Apply(conn, cfg.DBType); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied", zap.String("dialect", cfg.DBType))
		return nil
	},
}
