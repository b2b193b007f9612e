package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/smallbiznis/staydesk/internal/scheduler"
	"github.com/smallbiznis/staydesk/internal/usage"
)

var resetUsageCmd = &cobra.Command{
	Use:   "reset-usage",
	Short: "Run one monthly AI usage reset pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sched *scheduler.Scheduler
		app := fx.New(
			infrastructure(),
			usage.Module,
			fx.Provide(scheduler.New),
			fx.Populate(&sched),
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

		return sched.RunOnce(ctx)
	},
}
