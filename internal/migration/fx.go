package migration

import (
	"context"

	"github.com/smallbiznis/homescore/internal/clock"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, clk clock.Clock, log *zap.Logger) error {
		if err := Migrate(conn, cfg.DBType); err != nil {
			return err
		}

		if cfg.SeedDemoData && cfg.PropertySource != "memory" {
			n, err := seed.EnsureDemoProperties(context.Background(), conn, clk.Now())
			if err != nil {
				return err
			}
			log.Info("seed.demo_properties", zap.Int("inserted", n))
		}
		return nil
	}),
)
