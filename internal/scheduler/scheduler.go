package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/homescore/internal/clock"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	obsmetrics "github.com/smallbiznis/homescore/internal/observability/metrics"
	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	"github.com/smallbiznis/homescore/internal/ratelimit"
	"github.com/smallbiznis/homescore/internal/scheduler/guard"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const JobMonthlyConfidenceScore = "monthly_confidence_score"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Scores     confidencescoredomain.Service
	Ledger     confidencescoredomain.RunLedger
	Properties propertydomain.PropertyRepository
	Locker     *ratelimit.Locker `optional:"true"`
	Config     Config            `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	scores     confidencescoredomain.Service
	ledger     confidencescoredomain.RunLedger
	properties propertydomain.PropertyRepository
	locker     *ratelimit.Locker
	metrics    *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Scores == nil || p.Ledger == nil || p.Properties == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		scores:     p.Scores,
		ledger:     p.Ledger,
		properties: p.Properties,
		locker:     p.Locker,
		metrics:    obsmetrics.Scheduler(),
	}, nil
}

// RunMonthlyScoreCalculation scores every known property once and records the
// run. Per-property failures are collected in the summary; only a failure to
// enumerate properties or open the run record is returned as an error.
func (s *Scheduler) RunMonthlyScoreCalculation(ctx context.Context) (RunSummary, error) {
	startedAt := s.clock.Now().UTC()
	run := newJobRun(JobMonthlyConfidenceScore, ulid.Make().String(), confidencescoredomain.PeriodOf(startedAt), startedAt)
	ctx = s.withLogContext(ctx, run.runID)

	properties, err := s.properties.FindAll(ctx)
	if err != nil {
		return run.summary(s.clock.Now()), fmt.Errorf("list properties: %w", err)
	}
	run.setTotal(len(properties))

	record, err := s.ledger.StartRun(ctx, run.runID, run.period, startedAt)
	if err != nil {
		return run.summary(s.clock.Now()), fmt.Errorf("open run %s: %w", run.runID, err)
	}
	s.logJobStart(ctx, run)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, property := range properties {
		g.Go(func() error {
			s.scoreProperty(gctx, run, property.ID)
			return nil
		})
	}
	_ = g.Wait()

	summary := run.summary(s.clock.Now())
	summary.Cancelled = ctx.Err() != nil
	s.recordOutcomes(summary)
	if err := s.finishRun(ctx, record, summary, ctx.Err()); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.run.record_failed", err)
	}
	s.logJobFinish(ctx, run, summary)
	return summary, nil
}

func (s *Scheduler) scoreProperty(ctx context.Context, run *jobRun, propertyID string) {
	if err := ctx.Err(); err != nil {
		run.fail(propertyID, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PropertyTimeout)
	defer cancel()

	snapshot, err := s.scores.Recalculate(ctx, propertyID)
	if err != nil {
		run.fail(propertyID, err)
		s.logPropertyFailed(ctx, run, propertyID, err)
		return
	}
	run.succeed(snapshot.Partial)
	s.logPropertyScored(ctx, snapshot)
}

// RunOnce is the scheduled entry point: it skips a period that already has a
// completed run and holds the distributed lock while the batch executes.
func (s *Scheduler) RunOnce(parent context.Context) (RunSummary, bool, error) {
	ctx := s.withLogContext(parent, "")
	now := s.clock.Now().UTC()
	period := confidencescoredomain.PeriodOf(now)

	s.recoverStaleRuns(ctx, now)

	completed, err := s.ledger.PeriodCompleted(ctx, period)
	if err != nil {
		s.metrics.IncJobError(JobMonthlyConfidenceScore, err)
		return RunSummary{}, false, fmt.Errorf("check period %s: %w", period, err)
	}
	if err := guard.EnsurePeriodOpen(completed); err != nil {
		s.metrics.IncRunSkipped(JobMonthlyConfidenceScore, obsmetrics.RunSkippedReasonPeriodCompleted)
		s.logger(ctx).Debug("scheduler.job.skipped", zap.String("period", period), zap.Error(err))
		return RunSummary{}, false, nil
	}

	release, err := s.acquireRunLock(ctx)
	if err != nil {
		if errors.Is(err, guard.ErrRunLockHeld) {
			s.metrics.IncRunSkipped(JobMonthlyConfidenceScore, obsmetrics.RunSkippedReasonLockHeld)
			s.logger(ctx).Info("scheduler.job.skipped", zap.String("period", period), zap.Error(err))
			return RunSummary{}, false, nil
		}
		s.metrics.IncJobError(JobMonthlyConfidenceScore, err)
		return RunSummary{}, false, err
	}
	defer release()

	var summary RunSummary
	err = s.runJob(ctx, JobMonthlyConfidenceScore, s.cfg.RunTimeout, func(ctx context.Context) error {
		var runErr error
		summary, runErr = s.RunMonthlyScoreCalculation(ctx)
		if runErr == nil && summary.Cancelled {
			runErr = context.DeadlineExceeded
		}
		return runErr
	})
	return summary, true, err
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.logger(ctx).With(zap.String("job", name))
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		s.metrics.SetLastSuccess(name, s.clock.Now())
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("scheduler.job.timeout",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if _, _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler.run.failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)
	}
}

func (s *Scheduler) recordOutcomes(summary RunSummary) {
	s.metrics.AddProperties(JobMonthlyConfidenceScore, obsmetrics.PropertyOutcomeSucceeded, summary.Succeeded-summary.Partial)
	s.metrics.AddProperties(JobMonthlyConfidenceScore, obsmetrics.PropertyOutcomePartial, summary.Partial)
	s.metrics.AddProperties(JobMonthlyConfidenceScore, obsmetrics.PropertyOutcomeFailed, summary.Failed)
}
