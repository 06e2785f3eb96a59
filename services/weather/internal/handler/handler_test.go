package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

type MockService struct{ mock.Mock }

func (m *MockService) Forecast(ctx context.Context, city string, days int) (*domain.ForecastResponse, error) {
	args := m.Called(ctx, city, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ForecastResponse), args.Error(1)
}

func (m *MockService) Stats(ctx context.Context, hours int) (domain.RequestStats, error) {
	args := m.Called(ctx, hours)
	return args.Get(0).(domain.RequestStats), args.Error(1)
}

func (m *MockService) RecordRequest(ctx context.Context, l domain.RequestLog) {
	m.Called(ctx, l)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func newTestRouter(svc WeatherService) http.Handler {
	return NewRouter(NewWeatherHandler(svc, pinger{}, "weather-service"), RouterConfig{ServiceName: "weather-service", CORSOrigins: []string{"*"}})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func logged(status int, cached bool) interface{} {
	return mock.MatchedBy(func(l domain.RequestLog) bool {
		return l.ResponseStatus == status && l.WasCached == cached && l.Endpoint == "/api/weather"
	})
}

func TestForecastDefaultsDays(t *testing.T) {
	svc := new(MockService)
	svc.On("Forecast", mock.Anything, "Moscow", 10).
		Return(&domain.ForecastResponse{Location: domain.Location{CityName: "Moscow"}, Cached: true, Source: domain.SourceCache}, nil)
	svc.On("RecordRequest", mock.Anything, logged(http.StatusOK, true)).Return()

	rec := get(newTestRouter(svc), "/api/weather?city=Moscow")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, "cache", body["source"])
	svc.AssertExpectations(t)
}

func TestForecastErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid", domain.ErrInvalidInput, http.StatusBadRequest, ""},
		{"not found", domain.ErrCityNotFound, http.StatusNotFound, "Weather forecast not found for city: Atlantis"},
		{"auth", domain.ErrProviderAuth, http.StatusServiceUnavailable, ""},
		{"unavailable", domain.ErrProviderUnavailable, http.StatusServiceUnavailable, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Forecast", mock.Anything, "Atlantis", 3).Return(nil, tt.err)
			svc.On("RecordRequest", mock.Anything, mock.MatchedBy(func(l domain.RequestLog) bool {
				return l.ResponseStatus == tt.status && l.ErrorMessage != nil && !l.WasCached
			})).Return()

			rec := get(newTestRouter(svc), "/api/weather?city=Atlantis&days=3")

			assert.Equal(t, tt.status, rec.Code)
			if tt.msg != "" {
				assert.Contains(t, rec.Body.String(), tt.msg)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestForecastBadDaysParam(t *testing.T) {
	svc := new(MockService)
	svc.On("RecordRequest", mock.Anything, logged(http.StatusBadRequest, false)).Return()

	rec := get(newTestRouter(svc), "/api/weather?city=Moscow&days=ten")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything)
}

func TestStats(t *testing.T) {
	svc := new(MockService)
	svc.On("Stats", mock.Anything, 24).
		Return(domain.RequestStats{TotalRequests: 4, CachedRequests: 1, CacheHitRate: 0.25, TimePeriodHours: 24}, nil)

	rec := get(newTestRouter(svc), "/api/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string              `json:"status"`
		Data   domain.RequestStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 4, body.Data.TotalRequests)
}

func TestStatsOutOfRange(t *testing.T) {
	svc := new(MockService)
	svc.On("Stats", mock.Anything, 500).Return(domain.RequestStats{}, domain.ErrInvalidInput)

	rec := get(newTestRouter(svc), "/api/stats?hours=500")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := NewRouter(NewWeatherHandler(new(MockService), pinger{err: errors.New("down")}, "weather-service"), RouterConfig{ServiceName: "weather-service"})

	rec := get(h, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["database"])
	assert.Equal(t, "weather-service", body["service"])
}
