package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  fmt.Errorf("score property: %w", context.DeadlineExceeded),
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "not_found",
			err:  gorm.ErrRecordNotFound,
			want: SchedulerJobReasonNotFound,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "other_pg_error",
			err:  &pgconn.PgError{Code: "42P01"},
			want: SchedulerJobReasonDB,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddProperties(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "homescore", Environment: "test"})

	m.AddProperties("monthly_confidence_score", PropertyOutcomeSucceeded, 3)
	m.AddProperties("monthly_confidence_score", PropertyOutcomeFailed, 0)

	got := testutil.ToFloat64(m.propertiesScored.WithLabelValues("monthly_confidence_score", PropertyOutcomeSucceeded))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
	if n := testutil.CollectAndCount(m.propertiesScored); n != 1 {
		t.Fatalf("expected a single series, got %d", n)
	}
}

func TestFilterAttributesDropsPropertyIdentifiers(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("property_id", "42"),
		attribute.String("outcome", "partial"),
	)
	if len(attrs) != 1 || attrs[0].Key != "outcome" {
		t.Fatalf("expected only outcome to survive, got %v", attrs)
	}
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := newHTTPMetrics(registry, Config{})
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := newHTTPMetrics(registry, Config{})
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if first.requests != second.requests {
		t.Fatalf("expected the request counter to be shared")
	}
}
