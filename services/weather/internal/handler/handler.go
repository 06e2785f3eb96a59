package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/transport"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

const forecastEndpoint = "/api/weather"

type WeatherService interface {
	Forecast(ctx context.Context, city string, days int) (*domain.ForecastResponse, error)
	Stats(ctx context.Context, hours int) (domain.RequestStats, error)
	RecordRequest(ctx context.Context, l domain.RequestLog)
}

// WeatherHandler exposes the forecast and stats endpoints.
type WeatherHandler struct {
	svc         WeatherService
	db          observability.Pinger
	serviceName string
}

func NewWeatherHandler(s WeatherService, db observability.Pinger, serviceName string) *WeatherHandler {
	return &WeatherHandler{svc: s, db: db, serviceName: serviceName}
}

type statsResponse struct {
	Status    string              `json:"status"`
	Data      domain.RequestStats `json:"data"`
	Timestamp time.Time           `json:"timestamp"`
}

func (h *WeatherHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   h.serviceName,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Forecast serves GET /api/weather and records every outcome in the request log.
func (h *WeatherHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	city := strings.TrimSpace(r.URL.Query().Get("city"))

	entry := domain.RequestLog{Location: city, Endpoint: forecastEndpoint}
	defer func() {
		entry.ResponseTimeMS = int(time.Since(start).Milliseconds())
		h.svc.RecordRequest(context.WithoutCancel(r.Context()), entry)
	}()

	days, err := intParam(r, "days", domain.DefaultDays)
	if err != nil {
		entry.ResponseStatus = h.fail(w, r, err)
		entry.ErrorMessage = errorText(err)
		return
	}

	resp, err := h.svc.Forecast(r.Context(), city, days)
	if err != nil {
		entry.ResponseStatus = h.fail(w, r, err)
		entry.ErrorMessage = errorText(err)
		return
	}

	entry.ResponseStatus = http.StatusOK
	entry.WasCached = resp.Cached
	observability.GetLogger(r.Context()).Info("forecast ready",
		zap.String("city", city),
		zap.Bool("cached", resp.Cached),
		zap.Duration("elapsed", time.Since(start)),
	)
	transport.WriteJSON(w, http.StatusOK, resp)
}

func (h *WeatherHandler) Stats(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", 24)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st, err := h.svc.Stats(r.Context(), hours)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, statsResponse{Status: "success", Data: st, Timestamp: time.Now().UTC()})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}

// fail writes the error response for err and returns its status code.
func (h *WeatherHandler) fail(w http.ResponseWriter, r *http.Request, err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", inputMessage(err))
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCityNotFound):
		city := strings.TrimSpace(r.URL.Query().Get("city"))
		transport.WriteError(w, http.StatusNotFound, "not_found", "Weather forecast not found for city: "+city)
		return http.StatusNotFound
	case errors.Is(err, domain.ErrProviderAuth), errors.Is(err, domain.ErrProviderUnavailable):
		observability.GetLogger(r.Context()).Error("weather provider failure", zap.Error(err))
		transport.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Weather provider is unavailable")
		return http.StatusServiceUnavailable
	default:
		observability.GetLogger(r.Context()).Error("internal_error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
		transport.WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
		return http.StatusInternalServerError
	}
}

func errorText(err error) *string {
	s := err.Error()
	return &s
}

func inputMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrInvalidInput.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
