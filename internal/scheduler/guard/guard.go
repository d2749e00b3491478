package guard

import "errors"

var (
	ErrPeriodCompleted = errors.New("score_period_completed")
	ErrRunLockHeld     = errors.New("score_run_lock_held")
)

// EnsurePeriodOpen rejects a scheduled run for a month that already has a
// completed run.
func EnsurePeriodOpen(completed bool) error {
	if completed {
		return ErrPeriodCompleted
	}
	return nil
}
