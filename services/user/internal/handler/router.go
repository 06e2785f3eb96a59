package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/token"
)

type RouterConfig struct {
	ServiceName    string
	CORSOrigins    []string
	LoginRateLimit int
}

// NewRouter builds the HTTP router with all user routes.
func NewRouter(h *UserHandler, tokens *token.Manager, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Timeout(15 * time.Second))

	auth := middleware.JWT(tokens)

	r.Get("/health", h.Health)

	r.With(middleware.RateLimit(cfg.LoginRateLimit, time.Minute)).Post("/api/auth/login", h.Login)

	path := "/api/users"
	r.Post(path, h.Create)
	r.Get(path, h.List)
	r.With(auth).Get(path+"/me", h.Me)
	r.Get(path+"/{user_id}", h.Get)
	r.With(auth).Put(path+"/{user_id}", h.Update)
	r.With(auth).Put(path+"/{user_id}/wash-date", h.UpdateWashDate)

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
