package cache

import (
	"strings"
	"time"
)

const defaultFloodRiskTTL = 24 * time.Hour

// FloodRiskCache keeps recent flood risk scores per location.
type FloodRiskCache interface {
	Get(location string) (float64, bool)
	Set(location string, score float64)
}

type floodRiskCache struct {
	scores Cache[string, float64]
	ttl    time.Duration
}

// NewFloodRiskCache returns an in-memory cache; ttl <= 0 uses a day.
func NewFloodRiskCache(ttl time.Duration) FloodRiskCache {
	if ttl <= 0 {
		ttl = defaultFloodRiskTTL
	}
	return &floodRiskCache{
		scores: NewTTLCache[string, float64](),
		ttl:    ttl,
	}
}

func (c *floodRiskCache) Get(location string) (float64, bool) {
	key := cacheKey(location)
	if key == "" {
		return 0, false
	}
	return c.scores.Get(key)
}

func (c *floodRiskCache) Set(location string, score float64) {
	key := cacheKey(location)
	if key == "" {
		return
	}
	c.scores.Set(key, score, c.ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
