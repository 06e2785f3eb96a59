// Package proxy forwards gateway traffic to the backing services.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/transport"
)

var upstreamErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_upstream_errors_total",
		Help: "Requests the gateway could not deliver to an upstream",
	},
	[]string{"upstream"},
)

var corsHeaders = []string{
	"Access-Control-Allow-Origin",
	"Access-Control-Allow-Credentials",
	"Access-Control-Allow-Methods",
	"Access-Control-Allow-Headers",
	"Access-Control-Expose-Headers",
	"Access-Control-Max-Age",
}

// New returns a reverse proxy to target. Any X-User-ID sent by the client is
// dropped; the header only carries the identity the JWT middleware verified.
func New(name string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del(middleware.HeaderUserID)
			if id := middleware.UserID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(middleware.HeaderUserID, id)
			}
			if rid := middleware.RequestIDFromContext(pr.In.Context()); rid != "" {
				pr.Out.Header.Set(middleware.HeaderRequestID, rid)
			}
		},
		// The gateway answers CORS itself.
		ModifyResponse: func(res *http.Response) error {
			for _, h := range corsHeaders {
				res.Header.Del(h)
			}
			return nil
		},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			upstreamErrors.WithLabelValues(name).Inc()
			observability.GetLogger(r.Context()).Error("upstream unreachable",
				zap.String("upstream", name),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			transport.WriteError(w, http.StatusBadGateway, "bad_gateway", name+" is unavailable")
		},
	}
}
