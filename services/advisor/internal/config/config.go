package config

import (
	"time"

	"github.com/carwash-app/carwash/internal/env"
	"github.com/carwash-app/carwash/services/advisor/internal/scoring"
)

type Config struct {
	// ───── Infrastructure ─────
	DatabaseURL  string
	KafkaBrokers []string

	// ───── Runtime ─────
	HTTPAddr    string
	ObsHTTPAddr string
	ServiceName string
	LogLevel    string
	CORSOrigins []string

	// ───── Upstreams ─────
	UserServiceURL    string
	WeatherServiceURL string
	UpstreamTimeout   time.Duration

	// ───── Recommendations ─────
	CacheTTL         time.Duration
	Scoring          scoring.Params
	CleanupSchedule  string
	ExpiredRetention time.Duration

	// ───── Observability ─────
	TracingEnabled bool
	JaegerURL      string
}

func Load() Config {
	def := scoring.DefaultParams()

	return Config{
		// Infra
		DatabaseURL:  env.Must("DATABASE_URL"),
		KafkaBrokers: env.Slice("KAFKA_BROKERS", nil),

		// Runtime
		HTTPAddr:    env.Addr(env.String("HTTP_ADDR", ":8003")),
		ObsHTTPAddr: env.Addr(env.String("OBS_HTTP_ADDR", ":9003")),
		ServiceName: env.String("SERVICE_NAME", "wash-advisor-service"),
		LogLevel:    env.String("LOG_LEVEL", "info"),
		CORSOrigins: env.Slice("CORS_ORIGINS", []string{"*"}),

		// Upstreams
		UserServiceURL:    env.String("USER_SERVICE_URL", "http://user-service:8001"),
		WeatherServiceURL: env.String("WEATHER_SERVICE_URL", "http://weather-service:8002"),
		UpstreamTimeout:   env.Duration("UPSTREAM_TIMEOUT", 30*time.Second),

		// Recommendations
		CacheTTL: time.Duration(env.Int("CACHE_RECOMMENDATION_HOURS", 24)) * time.Hour,
		Scoring: scoring.Params{
			RainThreshold:  env.Float("MIN_PRECIPITATION_THRESHOLD", def.RainThreshold),
			IdealTempMin:   env.Float("IDEAL_WASH_TEMPERATURE_MIN", def.IdealTempMin),
			IdealTempMax:   env.Float("IDEAL_WASH_TEMPERATURE_MAX", def.IdealTempMax),
			WindThreshold:  env.Float("WIND_SPEED_THRESHOLD", def.WindThreshold),
			WeightPrecip:   env.Float("WEIGHT_PRECIPITATION", def.WeightPrecip),
			WeightTemp:     env.Float("WEIGHT_TEMPERATURE", def.WeightTemp),
			WeightWind:     env.Float("WEIGHT_WIND", def.WeightWind),
			WeightHumidity: env.Float("WEIGHT_HUMIDITY", def.WeightHumidity),
			MinAcceptable:  env.Float("MIN_ACCEPTABLE_SCORE", def.MinAcceptable),
		},
		CleanupSchedule:  env.String("CLEANUP_SCHEDULE", "@daily"),
		ExpiredRetention: time.Duration(env.Int("EXPIRED_RETENTION_DAYS", 30)) * 24 * time.Hour,

		// Observability
		TracingEnabled: env.Bool("TRACING_ENABLED", false),
		JaegerURL:      env.String("JAEGER_URL", "http://jaeger:14268/api/traces"),
	}
}
