package config

import (
	"time"

	"github.com/carwash-app/carwash/internal/env"
)

type Config struct {
	// ───── Infrastructure ─────
	DatabaseURL  string
	RedisAddr    string
	KafkaBrokers []string

	// ───── Runtime ─────
	HTTPAddr    string
	ObsHTTPAddr string
	ServiceName string
	LogLevel    string
	CORSOrigins []string

	// ───── JWT Security ─────
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration

	// ───── Rate Limiting ─────
	LoginRateLimitPerMin int

	// ───── Cache ─────
	ProfileCacheTTL time.Duration

	// ───── Outbox ─────
	OutboxRetention     time.Duration
	OutboxPurgeSchedule string

	// ───── Observability ─────
	TracingEnabled bool
	JaegerURL      string
}

func Load() Config {
	return Config{
		// Infra
		DatabaseURL:  env.Must("DATABASE_URL"),
		RedisAddr:    env.String("REDIS_ADDR", ""),
		KafkaBrokers: env.Slice("KAFKA_BROKERS", nil),

		// Runtime
		HTTPAddr:    env.Addr(env.String("HTTP_ADDR", ":8001")),
		ObsHTTPAddr: env.Addr(env.String("OBS_HTTP_ADDR", ":9001")),
		ServiceName: env.String("SERVICE_NAME", "user-service"),
		LogLevel:    env.String("LOG_LEVEL", "info"),
		CORSOrigins: env.Slice("CORS_ORIGINS", []string{"*"}),

		// JWT
		JWTSecret:      env.Must("JWT_SECRET"),
		JWTIssuer:      env.String("JWT_ISSUER", "carwash-user"),
		JWTAudience:    env.String("JWT_AUDIENCE", "carwash-clients"),
		AccessTokenTTL: time.Duration(env.Int("ACCESS_TTL_MIN", 30)) * time.Minute,

		// Rate limiting
		LoginRateLimitPerMin: env.Int("LOGIN_RATE_LIMIT", 10),

		// Cache
		ProfileCacheTTL: env.Duration("PROFILE_CACHE_TTL", time.Hour),

		// Outbox
		OutboxRetention:     time.Duration(env.Int("OUTBOX_RETENTION_HOURS", 72)) * time.Hour,
		OutboxPurgeSchedule: env.String("OUTBOX_PURGE_SCHEDULE", "@every 1h"),

		// Observability
		TracingEnabled: env.Bool("TRACING_ENABLED", false),
		JaegerURL:      env.String("JAEGER_URL", "http://jaeger:14268/api/traces"),
	}
}
