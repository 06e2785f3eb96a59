package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carwash-app/carwash/services/weather/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{
  "location": {"name": "Moscow", "country": "Russia", "lat": 55.75, "lon": 37.62},
  "forecast": {"forecastday": [
    {"date": "2024-05-01",
     "day": {"maxtemp_c": 18.2, "mintemp_c": 9.1, "avgtemp_c": 13.5, "totalprecip_mm": 0.4,
             "daily_chance_of_rain": 87, "maxwind_kph": 14.4, "avghumidity": 71,
             "condition": {"text": "Light rain", "code": 1183}},
     "astro": {"sunrise": "04:58 AM", "sunset": "08:21 PM"}},
    {"date": "2024-05-02",
     "day": {"maxtemp_c": 20, "mintemp_c": 11, "avgtemp_c": 15, "daily_chance_of_rain": "10%",
             "condition": {"text": "Sunny", "code": 1000}}}
  ]}
}`

func newTestClient(url string) *Client {
	c := NewClient(url, "secret", time.Second, 0)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestForecastSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("key"))
		assert.Equal(t, "Moscow", q.Get("q"))
		assert.Equal(t, "2", q.Get("days"))
		assert.Equal(t, "no", q.Get("aqi"))
		assert.Equal(t, "no", q.Get("alerts"))
		assert.Equal(t, "ru", q.Get("lang"))
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	pf, err := newTestClient(srv.URL).Forecast(context.Background(), "Moscow", 2)
	require.NoError(t, err)
	assert.Equal(t, "Moscow", pf.Location.CityName)
	require.Len(t, pf.Days, 2)
	assert.InDelta(t, 0.87, *pf.Days[0].PrecipitationProbability, 1e-9)
	assert.True(t, *pf.Days[0].IsRainy)
	assert.InDelta(t, 0.1, *pf.Days[1].PrecipitationProbability, 1e-9)
	assert.False(t, *pf.Days[1].IsRainy)
}

func TestForecastTerminalStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, domain.ErrCityNotFound},
		{"not found", http.StatusNotFound, domain.ErrCityNotFound},
		{"unauthorized", http.StatusUnauthorized, domain.ErrProviderAuth},
		{"forbidden", http.StatusForbidden, domain.ErrProviderAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Forecast(context.Background(), "Nowhere", 3)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestForecastRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	pf, err := c.Forecast(context.Background(), "Moscow", 2)
	require.NoError(t, err)
	assert.Len(t, pf.Days, 2)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestForecastGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Forecast(context.Background(), "Moscow", 2)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&calls))
}

func TestForecastRetriesInvalidBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`{"location":{}}`))
			return
		}
		w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Forecast(context.Background(), "Moscow", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestForecastWithoutKey(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second, 0)
	_, err := c.Forecast(context.Background(), "Moscow", 2)
	assert.ErrorIs(t, err, domain.ErrProviderAuth)
}
