package observability

import (
	"github.com/smallbiznis/homescore/internal/observability/logger"
	"github.com/smallbiznis/homescore/internal/observability/metrics"
	"github.com/smallbiznis/homescore/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires logging, tracing and the three metric families: OTLP score
// instruments, HTTP request metrics and the batch scheduler registry.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.loggerConfig,
		logger.New,
		Config.tracingConfig,
		tracing.NewProvider,
		Config.metricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(registerTelemetry),
)

// registerTelemetry forces the tracer provider and the scheduler registry to
// exist before any component starts, so the first batch run and the first
// request are both observed.
func registerTelemetry(cfg Config, mcfg metrics.Config, _ *sdktrace.TracerProvider, _ *metrics.Metrics, log *zap.Logger) {
	metrics.SchedulerWithConfig(mcfg)
	log.Info("observability.ready",
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.Bool("otel_enabled", cfg.Telemetry.Enabled),
		zap.Bool("debug", cfg.Debug()),
	)
}
