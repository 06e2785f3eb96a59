package config

import (
	"time"

	"github.com/carwash-app/carwash/internal/env"
)

type Config struct {
	// ───── Infrastructure ─────
	DatabaseURL string
	RedisAddr   string

	// ───── Runtime ─────
	HTTPAddr    string
	ObsHTTPAddr string
	ServiceName string
	LogLevel    string
	CORSOrigins []string

	// ───── Provider ─────
	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	WeatherAPIRPS     float64

	// ───── Cache & retention ─────
	CacheTTL        time.Duration
	LogRetention    time.Duration
	CleanupSchedule string

	// ───── Observability ─────
	TracingEnabled bool
	JaegerURL      string
}

func Load() Config {
	return Config{
		// Infra
		DatabaseURL: env.Must("DATABASE_URL"),
		RedisAddr:   env.String("REDIS_ADDR", ""),

		// Runtime
		HTTPAddr:    env.Addr(env.String("HTTP_ADDR", ":8002")),
		ObsHTTPAddr: env.Addr(env.String("OBS_HTTP_ADDR", ":9002")),
		ServiceName: env.String("SERVICE_NAME", "weather-service"),
		LogLevel:    env.String("LOG_LEVEL", "info"),
		CORSOrigins: env.Slice("CORS_ORIGINS", []string{"*"}),

		// Provider
		WeatherAPIKey:     env.Must("WEATHER_API_KEY"),
		WeatherAPIURL:     env.String("WEATHER_API_URL", "https://api.weatherapi.com/v1/forecast.json"),
		WeatherAPITimeout: env.Duration("WEATHER_API_TIMEOUT", 15*time.Second),
		WeatherAPIRPS:     env.Float("WEATHER_API_RPS", 5),

		// Cache & retention
		CacheTTL:        time.Duration(env.Int("CACHE_TTL_HOURS", 1)) * time.Hour,
		LogRetention:    time.Duration(env.Int("LOG_RETENTION_HOURS", 168)) * time.Hour,
		CleanupSchedule: env.String("CLEANUP_SCHEDULE", "@every 1h"),

		// Observability
		TracingEnabled: env.Bool("TRACING_ENABLED", false),
		JaegerURL:      env.String("JAEGER_URL", "http://jaeger:14268/api/traces"),
	}
}
