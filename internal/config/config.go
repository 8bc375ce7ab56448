package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all configuration for the storefront-insights service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Cache      CacheConfig
	Dashboard  DashboardConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the optional analytical event store.
type ClickHouseConfig struct {
	Enabled     bool
	Addr        []string
	Database    string
	User        string
	Password    string
	DialTimeout time.Duration
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	// APIKey protects the internal invalidation hooks.
	APIKey    string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// CacheConfig configures the dashboard bundle cache.
type CacheConfig struct {
	// Backend is one of "memory", "redis" or "none".
	Backend       string
	TTL           time.Duration
	SweepSchedule string
	KeyPrefix     string
}

// DashboardConfig holds aggregation settings.
type DashboardConfig struct {
	Location     string
	Locale       string
	FeedLimit    int
	RankingLimit int
	// NameMatching is "exact" or "normalized".
	NameMatching string
	// EventsBackend is "postgres", "clickhouse" or "memory".
	EventsBackend string
	FetchTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("STOREFRONT_HTTP_ADDR", ":8080"),
			Env:             getEnv("STOREFRONT_ENV", "development"),
			ShutdownTimeout: getDurationEnv("STOREFRONT_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("STOREFRONT_DB_HOST", "localhost"),
			Port:     getIntEnv("STOREFRONT_DB_PORT", 5432),
			User:     getEnv("STOREFRONT_DB_USER", "storefront"),
			Password: getEnv("STOREFRONT_DB_PASSWORD", "storefront_secret"),
			DBName:   getEnv("STOREFRONT_DB_NAME", "storefront"),
			SSLMode:  getEnv("STOREFRONT_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("STOREFRONT_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("STOREFRONT_DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("STOREFRONT_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("STOREFRONT_REDIS_PASSWORD", ""),
			DB:       getIntEnv("STOREFRONT_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:     getBoolEnv("STOREFRONT_CLICKHOUSE_ENABLED", false),
			Addr:        getSliceEnv("STOREFRONT_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database:    getEnv("STOREFRONT_CLICKHOUSE_DB", "storefront"),
			User:        getEnv("STOREFRONT_CLICKHOUSE_USER", "default"),
			Password:    getEnv("STOREFRONT_CLICKHOUSE_PASSWORD", ""),
			DialTimeout: getDurationEnv("STOREFRONT_CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("STOREFRONT_AUTH_ENABLED", true),
			JWTSecret: getEnv("STOREFRONT_JWT_SECRET", ""),
			APIKey:    getEnv("STOREFRONT_API_KEY", ""),
			SkipPaths: getSliceEnv("STOREFRONT_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("STOREFRONT_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("STOREFRONT_RATE_LIMIT_RPS", 5),
			Burst:   getIntEnv("STOREFRONT_RATE_LIMIT_BURST", 10),
		},
		Log: LogConfig{
			Level:  getEnv("STOREFRONT_LOG_LEVEL", "info"),
			Format: getEnv("STOREFRONT_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("STOREFRONT_METRICS_ENABLED", true),
			Path:      getEnv("STOREFRONT_METRICS_PATH", "/metrics"),
			Namespace: getEnv("STOREFRONT_METRICS_NAMESPACE", "storefront"),
		},
		Cache: CacheConfig{
			Backend:       getEnv("STOREFRONT_CACHE_BACKEND", "memory"),
			TTL:           getDurationEnv("STOREFRONT_CACHE_TTL", 5*time.Minute),
			SweepSchedule: getEnv("STOREFRONT_CACHE_SWEEP", "@every 1m"),
			KeyPrefix:     getEnv("STOREFRONT_CACHE_PREFIX", "dashboard"),
		},
		Dashboard: DashboardConfig{
			Location:      getEnv("STOREFRONT_TZ", "America/Sao_Paulo"),
			Locale:        getEnv("STOREFRONT_LOCALE", "pt-BR"),
			FeedLimit:     getIntEnv("STOREFRONT_FEED_LIMIT", 8),
			RankingLimit:  getIntEnv("STOREFRONT_RANKING_LIMIT", 5),
			NameMatching:  getEnv("STOREFRONT_NAME_MATCHING", "exact"),
			EventsBackend: getEnv("STOREFRONT_EVENTS_BACKEND", "postgres"),
			FetchTimeout:  getDurationEnv("STOREFRONT_FETCH_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("STOREFRONT_JWT_SECRET is required when auth is enabled")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Dashboard.EventsBackend {
	case "postgres", "memory":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("events backend clickhouse requires STOREFRONT_CLICKHOUSE_ENABLED")
		}
	default:
		return fmt.Errorf("unknown events backend %q", c.Dashboard.EventsBackend)
	}
	switch c.Dashboard.NameMatching {
	case "exact", "normalized":
	default:
		return fmt.Errorf("unknown name matching mode %q", c.Dashboard.NameMatching)
	}
	if c.Dashboard.FeedLimit <= 0 || c.Dashboard.RankingLimit <= 0 {
		return fmt.Errorf("feed and ranking limits must be positive")
	}
	if _, err := time.LoadLocation(c.Dashboard.Location); err != nil {
		return fmt.Errorf("invalid STOREFRONT_TZ: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
