package scheduler

import (
	"context"

	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	obscontext "github.com/smallbiznis/homescore/internal/observability/context"
	obslogger "github.com/smallbiznis/homescore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/homescore/internal/observability/metrics"
	"go.uber.org/zap"
)

func (s *Scheduler) withLogContext(ctx context.Context, runID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	if runID != "" {
		ctx = obscontext.WithRunID(ctx, runID)
	}
	return ctx
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("period", run.period),
		zap.Int("workers", s.cfg.Workers),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun, summary RunSummary) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("period", summary.Period),
		zap.Int64("duration_ms", summary.Duration().Milliseconds()),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("partial", summary.Partial),
		zap.Int("failed", summary.Failed),
		zap.Bool("cancelled", summary.Cancelled),
	}
	log := s.logger(ctx)
	if summary.Failed > 0 || summary.Cancelled {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logPropertyScored(ctx context.Context, snapshot *confidencescoredomain.ConfidenceScore) {
	obslogger.WithProperty(s.logger(ctx), snapshot.PropertyID).Info("scheduler.property.scored",
		zap.Int("insurance_score", snapshot.InsuranceScore),
		zap.Int("buyer_score", snapshot.BuyerScore),
		zap.Bool("partial", snapshot.Partial),
	)
}

func (s *Scheduler) logPropertyFailed(ctx context.Context, run *jobRun, propertyID string, err error) {
	obslogger.WithProperty(s.logger(ctx), propertyID).Error("scheduler.property.failed",
		zap.String("job", run.job),
		zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
}

func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	s.metrics.IncJobError(run.job, err)
	baseFields := []zap.Field{
		zap.String("job", run.job),
		zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Int("property_errors", run.errorCount()),
		zap.Error(err),
	}
	s.logger(ctx).Error(msg, append(baseFields, fields...)...)
}
