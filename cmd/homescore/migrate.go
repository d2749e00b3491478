package main

import (
	"fmt"

	"github.com/smallbiznis/homescore/internal/clock"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/migration"
	"github.com/smallbiznis/homescore/internal/observability"
	"github.com/smallbiznis/homescore/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Long: `Apply database migrations and exit. With SEED_DEMO_DATA set the demo
portfolio is inserted as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Migrations run in the migration module's invoke, so building the
		// graph is enough.
		app := fx.New(
			config.Module,
			observability.Module,
			db.Module,
			clock.Module,
			migration.Module,
			fx.NopLogger,
		)
		if err := app.Err(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}
