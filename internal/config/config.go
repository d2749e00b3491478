package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string
	Telemetry TelemetryConfig

	// PropertySource selects where property data is read from: "db" or "memory".
	PropertySource string
	SeedDemoData   bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	FloodRisk FloodRiskConfig
	Scoring   ScoringConfig
	Redis     RedisConfig
}

// TelemetryConfig selects where traces and OTLP metrics go. Prometheus
// metrics on /metrics are always served.
type TelemetryConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

// FloodRiskConfig configures the postcode flood-risk lookup.
type FloodRiskConfig struct {
	// Provider selects the lookup implementation: "static" or "http".
	Provider    string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Fallback    float64
	StaticScore float64
	StaticDelay time.Duration
	CacheTTL    time.Duration
	// RateLimit caps upstream calls per second across all workers when
	// redis is configured; zero disables throttling.
	RateLimit float64
	RateBurst int
}

// ScoringConfig configures the monthly score calculation job.
type ScoringConfig struct {
	Workers         int
	PropertyTimeout time.Duration
	RunTimeout      time.Duration
	RunInterval     time.Duration
	LockTTL         time.Duration
	WeightsFile     string
}

// RedisConfig is optional; an empty Addr disables redis-backed features.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "homescore"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:   strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		Telemetry: TelemetryConfig{
			Enabled:       getenvBool("OTEL_ENABLED", true),
			Endpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			Protocol:      otlpProtocol(),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		PropertySource: strings.ToLower(getenv("PROPERTY_SOURCE", "db")),
		SeedDemoData:   getenvBool("SEED_DEMO_DATA", false),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "homescore"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "homescore.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		FloodRisk: FloodRiskConfig{
			Provider:    strings.ToLower(getenv("FLOOD_RISK_PROVIDER", "static")),
			BaseURL:     strings.TrimSpace(getenv("FLOOD_RISK_BASE_URL", "")),
			APIKey:      strings.TrimSpace(getenv("FLOOD_RISK_API_KEY", "")),
			Timeout:     getenvDuration("FLOOD_RISK_TIMEOUT", 2*time.Second),
			Fallback:    getenvFloat("FLOOD_RISK_FALLBACK", 50),
			StaticScore: getenvFloat("FLOOD_RISK_STATIC_SCORE", 98),
			StaticDelay: getenvDuration("FLOOD_RISK_STATIC_DELAY", 500*time.Millisecond),
			CacheTTL:    getenvDuration("FLOOD_RISK_CACHE_TTL", 24*time.Hour),
			RateLimit:   getenvFloat("FLOOD_RISK_RATE_LIMIT", 0),
			RateBurst:   getenvInt("FLOOD_RISK_RATE_BURST", 5),
		},
		Scoring: ScoringConfig{
			Workers:         getenvInt("SCORE_WORKERS", 4),
			PropertyTimeout: getenvDuration("SCORE_PROPERTY_TIMEOUT", 30*time.Second),
			RunTimeout:      getenvDuration("SCORE_RUN_TIMEOUT", 2*time.Hour),
			RunInterval:     getenvDuration("SCORE_RUN_INTERVAL", time.Hour),
			LockTTL:         getenvDuration("SCORE_LOCK_TTL", 3*time.Hour),
			WeightsFile:     strings.TrimSpace(getenv("SCORE_WEIGHTS_FILE", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
	}

	return cfg
}

// otlpProtocol lets a traces-specific protocol override the shared one.
func otlpProtocol() string {
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		return strings.ToLower(traces)
	}
	return strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewWeightsHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
