package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SchedulerJobReasonDeadlineExceeded     = "deadline_exceeded"
	SchedulerJobReasonDBLockTimeout        = "db_lock_timeout"
	SchedulerJobReasonSerializationFailure = "serialization_failure"
	SchedulerJobReasonUniqueViolation      = "unique_violation"
	SchedulerJobReasonNotFound             = "not_found"
	SchedulerJobReasonDB                   = "db"
	SchedulerJobReasonUnknown              = "unknown"
)

const (
	PropertyOutcomeSucceeded = "succeeded"
	PropertyOutcomePartial   = "partial"
	PropertyOutcomeFailed    = "failed"

	RunSkippedReasonLockHeld        = "lock_held"
	RunSkippedReasonPeriodCompleted = "period_completed"
)

// SchedulerMetrics captures monthly scoring job health signals.
type SchedulerMetrics struct {
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobTimeouts      *prometheus.CounterVec
	jobErrors        *prometheus.CounterVec
	propertiesScored *prometheus.CounterVec
	runsSkipped      *prometheus.CounterVec
	runLoopLag       prometheus.Observer
	lastSuccess      *prometheus.GaugeVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest swaps the singleton for one bound to registry.
func ResetSchedulerMetricsForTest(registry prometheus.Registerer) *SchedulerMetrics {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(registry, Config{ServiceName: "homescore", Environment: "test"})
	})
	return schedulerMetrics
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := serviceLabels(cfg)

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "homescore_scheduler_job_runs_total",
		Help:        "Scheduler job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "homescore_scheduler_job_duration_seconds",
		Help:        "Scheduler job latency for the monthly scoring batch.",
		Buckets:     []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600, 7200},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "homescore_scheduler_job_timeouts_total",
		Help:        "Scheduler jobs cut short by their deadline.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "homescore_scheduler_job_errors_total",
		Help:        "Scheduler job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	propertiesScored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "homescore_scheduler_properties_total",
		Help:        "Properties visited by the batch, by outcome.",
		ConstLabels: constLabels,
	}, []string{"job", "outcome"})
	runsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "homescore_scheduler_runs_skipped_total",
		Help:        "Batch runs that did no work, by reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "homescore_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "homescore_scheduler_last_success_timestamp_seconds",
		Help:        "Unix time of the last job run without errors.",
		ConstLabels: constLabels,
	}, []string{"job"})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		propertiesScored,
		runsSkipped,
		runLoopLag,
		lastSuccess,
	)

	return &SchedulerMetrics{
		jobRuns:          jobRuns,
		jobDuration:      jobDuration,
		jobTimeouts:      jobTimeouts,
		jobErrors:        jobErrors,
		propertiesScored: propertiesScored,
		runsSkipped:      runsSkipped,
		runLoopLag:       runLoopLag,
		lastSuccess:      lastSuccess,
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the scheduler job error counter with classification.
func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifySchedulerJobReason(err)).Inc()
}

// AddProperties counts properties visited in a run with the given outcome.
func (m *SchedulerMetrics) AddProperties(job, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.propertiesScored.WithLabelValues(job, outcome).Add(float64(count))
}

func (m *SchedulerMetrics) IncRunSkipped(job, reason string) {
	if m == nil {
		return
	}
	m.runsSkipped.WithLabelValues(job, reason).Inc()
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *SchedulerMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	m.runLoopLag.Observe(max(duration, 0).Seconds())
}

func (m *SchedulerMetrics) SetLastSuccess(job string, at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
}

// ClassifySchedulerJobReason maps scheduler job errors to low-cardinality reasons.
func ClassifySchedulerJobReason(err error) string {
	switch {
	case err == nil:
		return SchedulerJobReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SchedulerJobReasonDeadlineExceeded
	case errors.Is(err, gorm.ErrRecordNotFound):
		return SchedulerJobReasonNotFound
	case hasPGCode(err, "55P03"):
		return SchedulerJobReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return SchedulerJobReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return SchedulerJobReasonUniqueViolation
	case isDBError(err):
		return SchedulerJobReasonDB
	default:
		return SchedulerJobReasonUnknown
	}
}

// IsSchedulerErrorRetryable reports whether the scheduler error should be retried.
func IsSchedulerErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return hasPGCode(err, "55P03") || hasPGCode(err, "40001")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	return errors.Is(err, gorm.ErrInvalidDB) || errors.Is(err, gorm.ErrInvalidTransaction)
}
