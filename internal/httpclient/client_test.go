package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/weather", r.URL.Path)
		assert.Equal(t, "Kazan", r.URL.Query().Get("city"))
		assert.Equal(t, "req-1", r.Header.Get(middleware.HeaderRequestID))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"city":"Kazan"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	ctx := middleware.InjectRequestID(context.Background(), "req-1")

	var out struct {
		City string `json:"city"`
	}
	require.NoError(t, c.GetJSON(ctx, "/api/weather", url.Values{"city": {"Kazan"}}, &out))
	assert.Equal(t, "Kazan", out.City)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).GetJSON(context.Background(), "/api/users/1", nil, &struct{}{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "not_found")
}

func TestWithHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	base := New(srv.URL, time.Second)
	authed := base.WithHeader("Authorization", "Bearer abc")

	assert.NoError(t, authed.Ping(context.Background(), "/health"))
	assert.Empty(t, base.headers.Get("Authorization"))
}
