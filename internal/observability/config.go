package observability

import (
	"strings"

	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/observability/logger"
	"github.com/smallbiznis/homescore/internal/observability/metrics"
	"github.com/smallbiznis/homescore/internal/observability/tracing"
)

const defaultServiceName = "homescore"

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Telemetry config.TelemetryConfig
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		LogLevel:    cfg.LogLevel,
		LogFormat:   cfg.LogFormat,
		Telemetry:   cfg.Telemetry,
	}
}

// Debug enables development logging, stack traces on errors and gin debug
// mode. Production never runs in debug unless LOG_LEVEL=debug.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) loggerConfig() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) tracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.Telemetry.Enabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Telemetry.Endpoint,
		ExporterProtocol: c.Telemetry.Protocol,
		SamplingRatio:    c.Telemetry.SamplingRatio,
	}
}

func (c Config) metricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.Telemetry.Enabled,
		ExporterEndpoint: c.Telemetry.Endpoint,
		ExporterProtocol: c.Telemetry.Protocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
