package config

import (
	"time"

	"github.com/carwash-app/carwash/internal/env"
)

type Config struct {
	// ───── Runtime ─────
	HTTPAddr    string
	ObsHTTPAddr string
	ServiceName string
	LogLevel    string
	CORSOrigins []string

	// ───── Upstreams ─────
	UserServiceURL    string
	WeatherServiceURL string
	AdvisorServiceURL string
	ProbeTimeout      time.Duration

	// ───── JWT Security ─────
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// ───── Rate Limiting ─────
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// ───── Observability ─────
	TracingEnabled bool
	JaegerURL      string
}

func Load() Config {
	return Config{
		// Runtime
		HTTPAddr:    env.Addr(env.String("HTTP_ADDR", ":8080")),
		ObsHTTPAddr: env.Addr(env.String("OBS_HTTP_ADDR", ":9080")),
		ServiceName: env.String("SERVICE_NAME", "gateway"),
		LogLevel:    env.String("LOG_LEVEL", "info"),
		CORSOrigins: env.Slice("CORS_ORIGINS", []string{"*"}),

		// Upstreams
		UserServiceURL:    env.String("USER_SERVICE_URL", "http://user-service:8001"),
		WeatherServiceURL: env.String("WEATHER_SERVICE_URL", "http://weather-service:8002"),
		AdvisorServiceURL: env.String("ADVISOR_SERVICE_URL", "http://wash-advisor-service:8003"),
		ProbeTimeout:      env.Duration("PROBE_TIMEOUT", 5*time.Second),

		// JWT
		JWTSecret:   env.Must("JWT_SECRET"),
		JWTIssuer:   env.String("JWT_ISSUER", "carwash-user"),
		JWTAudience: env.String("JWT_AUDIENCE", "carwash-clients"),

		// Rate limiting
		RateLimitRequests: env.Int("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   env.Duration("RATE_LIMIT_WINDOW", time.Minute),

		// Observability
		TracingEnabled: env.Bool("TRACING_ENABLED", false),
		JaegerURL:      env.String("JAEGER_URL", "http://jaeger:14268/api/traces"),
	}
}
