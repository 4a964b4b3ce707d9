package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis RedisConfig
	Kafka KafkaConfig

	// RequestTimeout bounds the whole analytics/search fan-out per request.
	RequestTimeout time.Duration
	// HierarchyCacheTTL bounds staleness of cached ancestor chains and
	// descendant sets. The hierarchy is near-static, so minutes are fine.
	HierarchyCacheTTL time.Duration
}

// RedisConfig configures the optional Redis hierarchy cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:              envOr("COMMUNISERVER_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RequestTimeout:    envDuration("REQUEST_TIMEOUT", 30*time.Second),
		HierarchyCacheTTL: envDuration("HIERARCHY_CACHE_TTL", 5*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("AUDIT_TOPIC", "communiserver.audit"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
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

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

