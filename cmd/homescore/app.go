package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/homescore/internal/clock"
	"github.com/smallbiznis/homescore/internal/confidencescore"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/floodrisk"
	"github.com/smallbiznis/homescore/internal/migration"
	"github.com/smallbiznis/homescore/internal/observability"
	"github.com/smallbiznis/homescore/internal/property"
	propertyrepository "github.com/smallbiznis/homescore/internal/property/repository"
	"github.com/smallbiznis/homescore/internal/ratelimit"
	"github.com/smallbiznis/homescore/internal/scheduler"
	"github.com/smallbiznis/homescore/internal/seed"
	"github.com/smallbiznis/homescore/pkg/db"
	"go.uber.org/fx"
)

// coreModules wires everything the score engine and the batch job need.
// Callers add the server and/or the scheduler loop on top.
func coreModules(cfg config.Config) fx.Option {
	return fx.Options(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		migration.Module,

		// Functional Domains
		propertyModule(cfg),
		floodrisk.Module,
		confidencescore.Module,
		scheduler.Module,
	)
}

func propertyModule(cfg config.Config) fx.Option {
	if cfg.PropertySource == "memory" {
		return fx.Options(
			fx.Provide(newMemoryStore),
			property.MemoryModule,
		)
	}
	return property.Module
}

func newMemoryStore(cfg config.Config, clk clock.Clock) *propertyrepository.MemoryStore {
	store := propertyrepository.NewMemoryStore()
	if cfg.SeedDemoData {
		seed.SeedMemory(store, clk.Now())
	}
	return store
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
