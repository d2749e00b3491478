package observability

import (
	"testing"

	"github.com/smallbiznis/homescore/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigMapsTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName:     " ",
		AppVersion:  "1.2.0",
		Environment: "production",
		LogLevel:    "info",
		LogFormat:   "json",
		Telemetry: config.TelemetryConfig{
			Enabled:       true,
			Endpoint:      "collector:4317",
			Protocol:      "grpc",
			SamplingRatio: 0.25,
		},
	})

	assert.Equal(t, "homescore", cfg.ServiceName)
	assert.False(t, cfg.Debug())

	tc := cfg.tracingConfig()
	assert.Equal(t, "collector:4317", tc.ExporterEndpoint)
	assert.Equal(t, 0.25, tc.SamplingRatio)
	assert.Equal(t, "1.2.0", tc.ServiceVersion)

	mc := cfg.metricsConfig()
	assert.True(t, mc.Enabled)
	assert.Equal(t, "homescore", mc.ServiceName)

	lc := cfg.loggerConfig()
	assert.False(t, lc.IncludeStackOnError)
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.True(t, Config{Environment: "Test"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}
