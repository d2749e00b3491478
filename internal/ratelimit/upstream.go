package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/homescore/internal/config"
)

const minBackoff = 50 * time.Millisecond

// UpstreamLimiter throttles calls to a third-party API across every worker
// and every process sharing the redis instance.
type UpstreamLimiter struct {
	bucket *TokenBucket
	key    string
	rate   float64
	burst  int
}

// NewFloodRiskLimiter returns nil (no throttling) without redis or a rate.
func NewFloodRiskLimiter(client *redis.Client, cfg config.Config) *UpstreamLimiter {
	return NewUpstreamLimiter(NewTokenBucket(client), "flood_risk", cfg.FloodRisk.RateLimit, cfg.FloodRisk.RateBurst)
}

func NewUpstreamLimiter(bucket *TokenBucket, name string, rate float64, burst int) *UpstreamLimiter {
	if bucket == nil || rate <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &UpstreamLimiter{
		bucket: bucket,
		key:    bucketKey("upstream", name),
		rate:   rate,
		burst:  burst,
	}
}

// Wait blocks until a token is granted or ctx ends.
func (l *UpstreamLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		decision, err := l.bucket.Allow(ctx, l.key, l.rate, l.burst)
		if err != nil {
			return err
		}
		if decision.Allowed {
			return nil
		}
		timer := time.NewTimer(max(decision.RetryAfter, minBackoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
