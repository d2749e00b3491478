package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/homescore/internal/clock"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"github.com/smallbiznis/homescore/internal/confidencescore/repository"
	"github.com/smallbiznis/homescore/internal/confidencescore/service"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/floodrisk"
	obsmetrics "github.com/smallbiznis/homescore/internal/observability/metrics"
	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	propertyrepository "github.com/smallbiznis/homescore/internal/property/repository"
	schedtesting "github.com/smallbiznis/homescore/internal/scheduler/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	testNow = time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC)
	dbSeq   atomic.Int64
)

type harness struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	store    *propertyrepository.MemoryStore
	scores   confidencescoredomain.Service
	ledger   confidencescoredomain.RunLedger
	registry *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&confidencescoredomain.ConfidenceScore{},
		&confidencescoredomain.ScoreRun{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	obsmetrics.ResetSchedulerMetricsForTest(registry)

	fake := clock.NewFakeClock(testNow)
	store := propertyrepository.NewMemoryStore()
	scores, err := service.New(service.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Config:     config.Config{FloodRisk: config.FloodRiskConfig{Timeout: time.Second, Fallback: 50}},
		Weights:    config.NewStaticWeightsHolder(config.DefaultWeightsConfig()),
		Repo:       repository.Provide(),
		Properties: store.Properties(),
		Assets:     store.Assets(),
		Tasks:      store.Tasks(),
		FloodRisk:  floodrisk.StaticLookup{Score: 98},
	})
	require.NoError(t, err)

	ledger := service.NewRunLedger(service.RunLedgerParams{DB: db, GenID: node, Repo: repository.ProvideRuns()})

	return &harness{db: db, clock: fake, store: store, scores: scores, ledger: ledger, registry: registry}
}

func (h *harness) scheduler(t *testing.T, scores confidencescoredomain.Service, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      h.clock,
		Scores:     scores,
		Ledger:     h.ledger,
		Properties: h.store.Properties(),
		Config:     cfg,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) scoreCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&confidencescoredomain.ConfidenceScore{}).Count(&count).Error)
	return count
}

func TestRunMonthlyScoreCalculation_IsolatesPropertyFailures(t *testing.T) {
	h := newHarness(t)
	schedtesting.SeedProperties(h.store, 5, testNow)

	scores := schedtesting.FailingService{
		Service: h.scores,
		Fail:    map[string]error{"prop-003": errors.New("asset store unavailable")},
	}
	s := h.scheduler(t, scores, Config{Workers: 3})

	summary, err := s.RunMonthlyScoreCalculation(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "2024-07", summary.Period)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "prop-003", summary.Failures[0].PropertyID)
	assert.Contains(t, summary.Failures[0].Reason, "asset store unavailable")
	assert.Equal(t, int64(4), h.scoreCount(t))

	_, err = h.scores.GetLatest(context.Background(), "prop-003")
	assert.ErrorIs(t, err, confidencescoredomain.ErrScoreNotFound)

	runs, err := h.ledger.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, confidencescoredomain.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 4, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)

	labels := map[string]string{"service": "homescore", "env": "test", "job": JobMonthlyConfidenceScore}
	assert.Equal(t, 1.0, counterValue(t, h.registry, "homescore_scheduler_properties_total", withLabel(labels, "outcome", obsmetrics.PropertyOutcomeFailed)))
	assert.Equal(t, 4.0, counterValue(t, h.registry, "homescore_scheduler_properties_total", withLabel(labels, "outcome", obsmetrics.PropertyOutcomeSucceeded)))
}

func TestRunMonthlyScoreCalculation_WorkerCountDoesNotChangeResults(t *testing.T) {
	collect := func(workers int) map[string][2]int {
		h := newHarness(t)
		ids := schedtesting.SeedProperties(h.store, 6, testNow)
		s := h.scheduler(t, h.scores, Config{Workers: workers})

		summary, err := s.RunMonthlyScoreCalculation(context.Background())
		require.NoError(t, err)
		require.Equal(t, 6, summary.Succeeded)

		out := make(map[string][2]int, len(ids))
		for _, id := range ids {
			latest, err := h.scores.GetLatest(context.Background(), id)
			require.NoError(t, err)
			assert.True(t, latest.CalculationDate.Equal(testNow))
			out[id] = [2]int{latest.InsuranceScore, latest.BuyerScore}
		}
		return out
	}

	sequential := collect(1)
	concurrent := collect(4)
	assert.Equal(t, sequential, concurrent)
}

func TestRunMonthlyScoreCalculation_EmptyPortfolio(t *testing.T) {
	h := newHarness(t)
	s := h.scheduler(t, h.scores, Config{})

	summary, err := s.RunMonthlyScoreCalculation(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, h.scoreCount(t))
}

type failingProperties struct{}

func (failingProperties) FindByID(context.Context, string) (*propertydomain.Property, error) {
	return nil, nil
}

func (failingProperties) FindAll(context.Context) ([]propertydomain.Property, error) {
	return nil, errors.New("connection refused")
}

func TestRunMonthlyScoreCalculation_EnumerationFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	s, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      h.clock,
		Scores:     h.scores,
		Ledger:     h.ledger,
		Properties: failingProperties{},
	})
	require.NoError(t, err)

	_, err = s.RunMonthlyScoreCalculation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	runs, err := h.ledger.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunMonthlyScoreCalculation_PropertyTimeoutIsAFailure(t *testing.T) {
	h := newHarness(t)
	schedtesting.SeedProperties(h.store, 2, testNow)
	s := h.scheduler(t, schedtesting.BlockingService{Service: h.scores}, Config{PropertyTimeout: 10 * time.Millisecond})

	summary, err := s.RunMonthlyScoreCalculation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.False(t, summary.Cancelled)
	for _, failure := range summary.Failures {
		assert.Contains(t, failure.Reason, context.DeadlineExceeded.Error())
	}
}

func TestRunOnce_SkipsCompletedPeriod(t *testing.T) {
	h := newHarness(t)
	schedtesting.SeedProperties(h.store, 2, testNow)
	s := h.scheduler(t, h.scores, Config{})

	summary, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, summary.Succeeded)

	h.clock.Advance(time.Hour)
	_, ran, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, int64(2), h.scoreCount(t))

	labels := map[string]string{
		"service": "homescore",
		"env":     "test",
		"job":     JobMonthlyConfidenceScore,
		"reason":  obsmetrics.RunSkippedReasonPeriodCompleted,
	}
	assert.Equal(t, 1.0, counterValue(t, h.registry, "homescore_scheduler_runs_skipped_total", labels))

	h.clock.Set(time.Date(2024, 8, 1, 0, 30, 0, 0, time.UTC))
	summary, ran, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "2024-08", summary.Period)
	assert.Equal(t, int64(4), h.scoreCount(t))
}

func TestRunOnce_FailsStaleRuns(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.StartRun(context.Background(), "dead-run", "2024-07", testNow.Add(-5*time.Hour))
	require.NoError(t, err)

	s := h.scheduler(t, h.scores, Config{LockTTL: time.Hour, RunTimeout: time.Hour})
	_, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	runs, err := h.ledger.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		if run.RunID == "dead-run" {
			assert.Equal(t, confidencescoredomain.RunStatusFailed, run.Status)
			continue
		}
		assert.Equal(t, confidencescoredomain.RunStatusCompleted, run.Status)
	}
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.ResetSchedulerMetricsForTest(registry)

	s := &Scheduler{log: zap.NewNop(), clock: clock.NewFakeClock(testNow), metrics: metrics}
	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{"service": "homescore", "env": "test", "job": "timeout_job"}
	assert.Equal(t, 1.0, counterValue(t, registry, "homescore_scheduler_job_timeouts_total", labels))
	assert.Equal(t, 1.0, counterValue(t, registry, "homescore_scheduler_job_errors_total",
		withLabel(labels, "reason", obsmetrics.SchedulerJobReasonDeadlineExceeded)))
}

func TestRunJobWrapsOtherErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.ResetSchedulerMetricsForTest(registry)

	s := &Scheduler{log: zap.NewNop(), clock: clock.NewFakeClock(testNow), metrics: metrics}
	err := s.runJob(context.Background(), "broken_job", time.Second, func(context.Context) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, "broken_job: boom", err.Error())
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !labelsMatch(metric.GetLabel(), labels) {
				continue
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, labels map[string]string) bool {
	if len(pairs) != len(labels) {
		return false
	}
	for _, pair := range pairs {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}
