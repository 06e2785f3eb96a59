package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealthReadyHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		body string
	}{
		{name: "db up", err: nil, want: http.StatusOK, body: `{"database":"up"}`},
		{name: "db down", err: errors.New("connection refused"), want: http.StatusServiceUnavailable, body: `{"database":"down"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthReadyHandler(fakePinger{err: tt.err})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware("test"))
	r.Get("/api/users/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "unmatched", routePattern(httptest.NewRequest(http.MethodGet, "/", nil)))
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
