package scheduler

import (
	"time"

	"github.com/smallbiznis/homescore/internal/config"
)

// Config controls the monthly scoring batch.
type Config struct {
	RunInterval     time.Duration
	Workers         int
	PropertyTimeout time.Duration
	RunTimeout      time.Duration
	LockTTL         time.Duration
	// StaleAfter is how long a run may stay "running" before the next tick
	// marks it abandoned.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     time.Hour,
		Workers:         4,
		PropertyTimeout: 30 * time.Second,
		RunTimeout:      2 * time.Hour,
		LockTTL:         3 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:     cfg.Scoring.RunInterval,
		Workers:         cfg.Scoring.Workers,
		PropertyTimeout: cfg.Scoring.PropertyTimeout,
		RunTimeout:      cfg.Scoring.RunTimeout,
		LockTTL:         cfg.Scoring.LockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.PropertyTimeout <= 0 {
		c.PropertyTimeout = defaults.PropertyTimeout
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockTTL < c.RunTimeout {
		c.LockTTL = c.RunTimeout
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = c.LockTTL
	}
	return c
}
