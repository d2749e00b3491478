package floodrisk

import (
	"fmt"
	"net/http"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/homescore/internal/cache"
	"github.com/smallbiznis/homescore/internal/config"
	floodriskdomain "github.com/smallbiznis/homescore/internal/floodrisk/domain"
	"github.com/smallbiznis/homescore/internal/observability/metrics"
	"github.com/smallbiznis/homescore/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("floodrisk",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Config  config.Config
	Redis   *redis.Client              `optional:"true"`
	Limiter *ratelimit.UpstreamLimiter `optional:"true"`
	Metrics *metrics.Metrics           `optional:"true"`
	Log     *zap.Logger
}

// New builds the configured provider behind the cache.
func New(p Params) (floodriskdomain.Lookup, error) {
	cfg := p.Config.FloodRisk

	var upstream floodriskdomain.Lookup
	switch cfg.Provider {
	case "", "static":
		upstream = StaticLookup{Score: cfg.StaticScore, Delay: cfg.StaticDelay}
	case "http":
		client := &http.Client{Timeout: cfg.Timeout}
		lookup, err := NewHTTPLookup(cfg.BaseURL, cfg.APIKey, client, p.Limiter)
		if err != nil {
			return nil, err
		}
		upstream = lookup
	default:
		return nil, fmt.Errorf("unknown flood risk provider %q", cfg.Provider)
	}

	p.Log.Info("floodrisk.provider",
		zap.String("provider", providerName(cfg.Provider)),
		zap.Bool("redis_cache", p.Redis != nil),
		zap.Bool("rate_limited", p.Limiter != nil),
	)
	return NewCachedLookup(upstream, providerName(cfg.Provider), cache.NewFloodRiskCache(cfg.CacheTTL), p.Redis, cfg.CacheTTL, p.Metrics, p.Log), nil
}

func providerName(provider string) string {
	if provider == "" {
		return "static"
	}
	return provider
}
