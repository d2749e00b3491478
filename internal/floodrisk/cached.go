package floodrisk

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/homescore/internal/cache"
	floodriskdomain "github.com/smallbiznis/homescore/internal/floodrisk/domain"
	"github.com/smallbiznis/homescore/internal/observability/logger"
	"github.com/smallbiznis/homescore/internal/observability/metrics"
	"go.uber.org/zap"
)

const redisKeyPrefix = "homescore:floodrisk:"

// CachedLookup consults the process cache, then redis, then the upstream.
// Only successful upstream answers are cached.
type CachedLookup struct {
	next     floodriskdomain.Lookup
	provider string
	local    cache.FloodRiskCache
	redis    *redis.Client
	ttl      time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewCachedLookup(next floodriskdomain.Lookup, provider string, local cache.FloodRiskCache, client *redis.Client, ttl time.Duration, m *metrics.Metrics, log *zap.Logger) *CachedLookup {
	return &CachedLookup{
		next:     next,
		provider: provider,
		local:    local,
		redis:    client,
		ttl:      ttl,
		metrics:  m,
		log:      log,
	}
}

// CacheKey normalises a postcode so " SW1A 1AA" and "sw1a 1aa" share an entry.
func CacheKey(postcode string) string {
	return slug.Make(postcode)
}

func (c *CachedLookup) FloodRisk(ctx context.Context, postcode string) (float64, error) {
	key := CacheKey(postcode)
	if key == "" {
		return c.fetch(ctx, postcode, key)
	}

	if score, ok := c.local.Get(key); ok {
		c.metrics.RecordFloodRiskLookup(ctx, c.provider, "cache_hit")
		return score, nil
	}

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, redisKeyPrefix+key).Result()
		switch {
		case err == nil:
			if score, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil && floodriskdomain.ValidScore(score) {
				c.local.Set(key, score)
				c.metrics.RecordFloodRiskLookup(ctx, c.provider, "cache_hit")
				return score, nil
			}
		case !errors.Is(err, redis.Nil):
			logger.WithContext(ctx, c.log).Warn("floodrisk.cache.read_failed", zap.Error(err))
		}
	}

	return c.fetch(ctx, postcode, key)
}

func (c *CachedLookup) fetch(ctx context.Context, postcode, key string) (float64, error) {
	score, err := c.next.FloodRisk(ctx, postcode)
	if err != nil {
		c.metrics.RecordFloodRiskLookup(ctx, c.provider, "error")
		return 0, err
	}
	c.metrics.RecordFloodRiskLookup(ctx, c.provider, "upstream")
	if key == "" {
		return score, nil
	}

	c.local.Set(key, score)
	if c.redis != nil {
		value := strconv.FormatFloat(score, 'f', -1, 64)
		if err := c.redis.Set(ctx, redisKeyPrefix+key, value, c.ttl).Err(); err != nil {
			logger.WithContext(ctx, c.log).Warn("floodrisk.cache.write_failed", zap.Error(err))
		}
	}
	return score, nil
}
