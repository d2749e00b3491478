package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/homescore/internal/ratelimit"
	"github.com/smallbiznis/homescore/internal/scheduler/guard"
	"go.uber.org/zap"
)

// acquireRunLock takes the cluster-wide batch lock. Without redis the locker
// is nil and every instance is granted the lock.
func (s *Scheduler) acquireRunLock(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	lease, err := s.locker.Acquire(lockCtx, JobMonthlyConfidenceScore, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, ratelimit.ErrLockHeld) {
			return nil, guard.ErrRunLockHeld
		}
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}

	return func() {
		log := s.logger(ctx).With(zap.String("key", lease.Key()))
		if lease.Expired(time.Now()) {
			log.Warn("scheduler.lock.expired_before_release", zap.Duration("ttl", s.cfg.LockTTL))
		}
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			log.Warn("scheduler.lock.release_failed", zap.Error(err))
		}
	}, nil
}
