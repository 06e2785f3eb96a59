package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/carwash-app/carwash/internal/observability"
)

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string
}

// NewRouter builds the HTTP router with all weather routes.
func NewRouter(h *WeatherHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	// The provider client may retry for up to ~50 s.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.Health)
	r.Get(forecastEndpoint, h.Forecast)
	r.Get("/api/stats", h.Stats)

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
