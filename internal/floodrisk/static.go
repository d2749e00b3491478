package floodrisk

import (
	"context"
	"time"
)

// StaticLookup answers every postcode with the same score after a fixed
// delay, standing in for a real risk data provider.
type StaticLookup struct {
	Score float64
	Delay time.Duration
}

func (s StaticLookup) FloodRisk(ctx context.Context, _ string) (float64, error) {
	if s.Delay <= 0 {
		return s.Score, ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
		return s.Score, nil
	}
}
