package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carwash-app/carwash/edge/gateway/internal/config"
	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/token"
)

// Upstreams are the handlers requests are forwarded to.
type Upstreams struct {
	User    http.Handler
	Weather http.Handler
	Advisor http.Handler
}

func NewRouter(up Upstreams, tokens *token.Manager, ready http.HandlerFunc, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Get("/health/live", observability.HealthLiveHandler)
	r.Get("/health/ready", ready)

	// User service checks its own tokens on profile writes.
	r.Handle("/api/auth/*", up.User)
	usersPath := "/api/users"
	r.Handle(usersPath, up.User)
	r.Handle(usersPath+"/*", up.User)

	r.Handle("/api/weather", up.Weather)
	r.Handle("/api/stats", up.Weather)

	r.Handle("/api/stats/service", up.Advisor)
	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(tokens))

		recPath := "/api/recommendations"
		p.Handle(recPath, up.Advisor)
		p.Handle(recPath+"/*", up.Advisor)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
