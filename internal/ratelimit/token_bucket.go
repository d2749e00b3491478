package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Tokens are stored scaled by 1000 so fractional refills survive the Lua
// number to redis integer reply conversion.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2]) * 1000
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = math.max(0, now - ts)
  tokens = math.min(burst, tokens + delta * rate)
end

local allowed = 0
if tokens >= 1000 then
  allowed = 1
  tokens = tokens - 1000
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens)}
`

// TokenBucket is a redis-backed bucket shared by every process using the key.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type Decision struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token when available. rate is tokens per second.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (Decision, error) {
	if t == nil {
		return Decision{Allowed: true}, nil
	}
	if key == "" {
		return Decision{}, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return Decision{}, errors.New("rate limiter rate and burst must be positive")
	}

	ttl := bucketTTL(rate, burst)
	res, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) < 2 {
		return Decision{}, errors.New("invalid rate limit script response")
	}

	decision := Decision{
		Allowed:   res[0] == 1,
		Remaining: float64(res[1]) / 1000,
	}
	if !decision.Allowed {
		decision.RetryAfter = retryAfter(decision.Remaining, rate)
	}
	return decision, nil
}

func retryAfter(remaining, rate float64) time.Duration {
	needed := 1 - remaining
	if needed <= 0 || rate <= 0 {
		return 0
	}
	return time.Duration(needed / rate * float64(time.Second))
}

func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func bucketKey(parts ...string) string {
	key := "homescore:ratelimit"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
