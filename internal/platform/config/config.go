package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Store handles are constructed
// once in main from this config and passed explicitly to every component; no
// package holds an implicit database or file-path global.
type Server struct {
	Addr          string
	JWTSigningKey string

	// PostgresURL selects the durable store. Empty means the in-memory
	// store, which is good enough for local runs and tests.
	PostgresURL string

	// RedisConfig selects the distributed rate limiter. Empty URL disables
	// Redis and falls back to the in-memory limiter.
	Redis RedisConfig

	// KafkaBrokers enables the audit Kafka sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// ErasureRateLimit bounds erasure requests per user per window.
	ErasureRateLimit  int
	ErasureRateWindow time.Duration
}

// RedisConfig mirrors the go-redis options we expose.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	cfg := Server{
		Addr:              envOr("PRIVACORE_ADDR", ":8080"),
		PostgresURL:       os.Getenv("PRIVACORE_POSTGRES_URL"),
		AuditTopic:        envOr("PRIVACORE_AUDIT_TOPIC", "privacore.audit"),
		ErasureRateLimit:  envIntOr("PRIVACORE_ERASURE_RATE_LIMIT", 10),
		ErasureRateWindow: envDurationOr("PRIVACORE_ERASURE_RATE_WINDOW", time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("PRIVACORE_REDIS_URL"),
			PoolSize:     envIntOr("PRIVACORE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("PRIVACORE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("PRIVACORE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("PRIVACORE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("PRIVACORE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	cfg.JWTSigningKey = os.Getenv("PRIVACORE_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Development default; override in any real deployment.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	if brokers := os.Getenv("PRIVACORE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
