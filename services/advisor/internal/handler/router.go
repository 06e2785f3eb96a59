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

// NewRouter builds the HTTP router with all advisor routes.
func NewRouter(h *AdvisorHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	// A fresh recommendation waits on the weather service and its provider retries.
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/recommendations", h.Recommend)
		r.Get("/recommendations/{user_id}", h.History)
		r.Get("/stats/service", h.Stats)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
