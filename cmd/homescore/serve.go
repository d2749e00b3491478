package main

import (
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/scheduler"
	"github.com/smallbiznis/homescore/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the monthly scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		fx.New(
			coreModules(cfg),
			server.Module,
			scheduler.LoopModule,
		).Run()
		return nil
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API only",
	Long: `Run the HTTP API without the monthly loop. Admin-triggered runs are
still served.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		fx.New(
			coreModules(cfg),
			server.Module,
		).Run()
		return nil
	},
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the monthly scheduler loop only",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		// No server module!
		fx.New(
			coreModules(cfg),
			scheduler.LoopModule,
		).Run()
		return nil
	},
}
