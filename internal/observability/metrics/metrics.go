package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes scoring instruments exported over OTLP.
type Metrics struct {
	scoreCalculations metric.Int64Counter
	scoreDuration     metric.Float64Histogram
	floodRiskLookups  metric.Int64Counter
	reportsRendered   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("metrics.shutdown")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics.initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the scoring instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "homescore"
	}
	meter := provider.Meter(name)

	scoreCalculations, err := meter.Int64Counter("homescore_score_calculations_total",
		metric.WithDescription("Confidence score calculations by outcome."))
	if err != nil {
		return nil, err
	}
	scoreDuration, err := meter.Float64Histogram("homescore_score_calculation_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	floodRiskLookups, err := meter.Int64Counter("homescore_flood_risk_lookups_total")
	if err != nil {
		return nil, err
	}
	reportsRendered, err := meter.Int64Counter("homescore_reports_rendered_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		scoreCalculations: scoreCalculations,
		scoreDuration:     scoreDuration,
		floodRiskLookups:  floodRiskLookups,
		reportsRendered:   reportsRendered,
	}, nil
}

// NewNoop returns instruments bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordScoreCalculation counts a calculation; outcome is success, partial or error.
func (m *Metrics) RecordScoreCalculation(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...)
	m.scoreCalculations.Add(ctx, 1, attrs)
	m.scoreDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFloodRiskLookup counts an external flood risk lookup.
func (m *Metrics) RecordFloodRiskLookup(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", outcome),
	)
	m.floodRiskLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordReportRendered(ctx context.Context) {
	if m == nil {
		return
	}
	m.reportsRendered.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Property ids and addresses must never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"provider":    {},
	"profile":     {},
	"job":         {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
