package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// recoverStaleRuns fails runs left "running" by an instance that died before
// recording its result, so the run list reflects what actually finished.
func (s *Scheduler) recoverStaleRuns(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.StaleAfter)
	n, err := s.ledger.FailStaleRuns(ctx, cutoff, now)
	if err != nil {
		s.metrics.IncJobError(JobMonthlyConfidenceScore, err)
		s.logger(ctx).Warn("scheduler.recovery.failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger(ctx).Warn("scheduler.recovery.stale_runs",
			zap.Int64("count", n),
			zap.Time("cutoff", cutoff),
		)
	}
}
