// Package config loads the process configuration from environment
// variables. cmd/api and cmd/settle share it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lease backends.
const (
	LeaseRedis    = "redis"
	LeasePostgres = "postgres"
	LeaseMemory   = "memory"
)

// Config holds every setting. Load documents the variable behind each field.
type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Provider
	SportMonksAPIToken          string
	SportMonksRequestsPerMinute int
	FeedTimeout                 time.Duration

	// Settlement
	StoreTimeout     time.Duration
	LeaseBackend     string
	LeaseTTL         time.Duration
	SettleWorkers    int
	SettleInterval   time.Duration
	ActivateInterval time.Duration
	GameRulesFile    string

	// Redis (lease backend)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka (event fan-out)
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Notifications
	DispatchInterval time.Duration
	EventRetention   time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads the environment. Malformed values are reported together rather
// than silently replaced by defaults.
func Load() (*Config, error) {
	var e env
	cfg := &Config{
		DatabaseURL:    e.str("DATABASE_URL", ""),
		DBPoolMinConns: e.num("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: e.num("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  e.dur("DB_POOL_MAX_LIFE_MINUTES", 30, time.Minute),

		APIHost:     e.str("API_HOST", "0.0.0.0"),
		APIPort:     e.num("API_PORT", e.num("PORT", 8000)),
		Environment: e.str("ENVIRONMENT", "development"),
		Debug:       e.flag("DEBUG", false),

		CORSAllowOrigins: e.list("CORS_ALLOW_ORIGINS", "http://localhost:3000", "http://localhost:5173"),

		RateLimitEnabled:  e.flag("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: e.num("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   e.dur("RATE_LIMIT_WINDOW", 60, time.Second),

		SportMonksAPIToken:          e.str("SPORTMONKS_API_TOKEN", ""),
		SportMonksRequestsPerMinute: e.num("SPORTMONKS_REQUESTS_PER_MINUTE", 300),
		FeedTimeout:                 e.dur("FEED_TIMEOUT_SECONDS", 15, time.Second),

		StoreTimeout:     e.dur("STORE_TIMEOUT_SECONDS", 10, time.Second),
		LeaseBackend:     strings.ToLower(e.str("LEASE_BACKEND", LeasePostgres)),
		LeaseTTL:         e.dur("LEASE_TTL_SECONDS", 120, time.Second),
		SettleWorkers:    e.num("SETTLE_WORKERS", 4),
		SettleInterval:   e.dur("SETTLE_INTERVAL_MINUTES", 5, time.Minute),
		ActivateInterval: e.dur("ACTIVATE_INTERVAL_MINUTES", 1, time.Minute),
		GameRulesFile:    e.str("GAME_RULES_FILE", ""),

		RedisAddr:     e.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: e.str("REDIS_PASSWORD", ""),
		RedisDB:       e.num("REDIS_DB", 0),

		KafkaEnabled: e.flag("KAFKA_ENABLED", false),
		KafkaBrokers: e.list("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   e.str("KAFKA_TOPIC", "settlement-events"),

		DispatchInterval: e.dur("DISPATCH_INTERVAL_SECONDS", 30, time.Second),
		EventRetention:   e.dur("EVENT_RETENTION_DAYS", 30, 24*time.Hour),

		CacheEnabled: e.flag("CACHE_ENABLED", true),
	}

	if cfg.DatabaseURL == "" {
		e.fail("DATABASE_URL must be set")
	}
	switch cfg.LeaseBackend {
	case LeaseRedis, LeasePostgres, LeaseMemory:
	default:
		e.fail("LEASE_BACKEND must be redis, postgres or memory, got %q", cfg.LeaseBackend)
	}
	if cfg.LeaseTTL <= cfg.FeedTimeout {
		e.fail("LEASE_TTL_SECONDS (%s) must exceed FEED_TIMEOUT_SECONDS (%s)", cfg.LeaseTTL, cfg.FeedTimeout)
	}
	if cfg.SettleWorkers < 1 {
		e.fail("SETTLE_WORKERS must be at least 1, got %d", cfg.SettleWorkers)
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env reader
// --------------------------------------------------------------------------

// env reads variables and remembers every value it could not parse.
type env struct {
	errs []error
}

func (e *env) fail(format string, args ...any) {
	e.errs = append(e.errs, fmt.Errorf(format, args...))
}

func (e *env) str(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e *env) num(key string, fallback int) int {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.fail("%s: %q is not an integer", key, v)
		return fallback
	}
	return n
}

// dur reads an integer count of unit.
func (e *env) dur(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(e.num(key, fallback)) * unit
}

func (e *env) flag(key string, fallback bool) bool {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail("%s: %q is not a boolean", key, v)
		return fallback
	}
	return b
}

// list splits a comma-separated value, dropping blanks.
func (e *env) list(key string, fallback ...string) []string {
	var out []string
	for _, p := range strings.Split(e.str(key, ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
