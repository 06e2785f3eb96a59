package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/transport"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
	"github.com/carwash-app/carwash/services/advisor/internal/upstream"
)

type AdvisorService interface {
	Recommend(ctx context.Context, callerID string, req domain.RecommendRequest) (*domain.RecommendResponse, error)
	History(ctx context.Context, callerID, userID string, limit int) ([]*domain.Recommendation, error)
	Stats(ctx context.Context, days int) (domain.ServiceStats, error)
}

// Prober reports the health of the services the advisor depends on.
type Prober func(ctx context.Context) upstream.Status

type AdvisorHandler struct {
	svc         AdvisorService
	db          observability.Pinger
	probe       Prober
	serviceName string
}

func NewAdvisorHandler(s AdvisorService, db observability.Pinger, probe Prober, serviceName string) *AdvisorHandler {
	return &AdvisorHandler{svc: s, db: db, probe: probe, serviceName: serviceName}
}

type recommendRequest struct {
	UserID       string `json:"user_id" validate:"omitempty,max=64"`
	Days         *int   `json:"days" validate:"omitempty,min=1,max=14"`
	ForceRefresh bool   `json:"force_refresh"`
}

type historyResponse struct {
	UserID          string                   `json:"user_id"`
	Recommendations []*domain.Recommendation `json:"recommendations"`
	Total           int                      `json:"total"`
}

func (h *AdvisorHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	dbStatus := "healthy"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}
	cancel()

	st := h.probe(r.Context())
	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"status":          "healthy",
		"service":         h.serviceName,
		"database":        dbStatus,
		"user_service":    st.UserService,
		"weather_service": st.WeatherService,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// Recommend serves POST /api/recommendations. The caller identity comes from
// the X-User-ID header the gateway sets after verifying the token.
func (h *AdvisorHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := transport.DecodeJSON(w, r, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}
	if err := transport.Validate(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}

	days := domain.DefaultDays
	if req.Days != nil {
		days = *req.Days
	}

	callerID := strings.TrimSpace(r.Header.Get(middleware.HeaderUserID))
	resp, err := h.svc.Recommend(r.Context(), callerID, domain.RecommendRequest{
		UserID:       req.UserID,
		Days:         days,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		userID := req.UserID
		if userID == "" {
			userID = callerID
		}
		h.fail(w, r, err, userID)
		return
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdvisorHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	limit, err := intParam(r, "limit", domain.DefaultHistoryLimit)
	if err != nil {
		h.fail(w, r, err, userID)
		return
	}

	callerID := strings.TrimSpace(r.Header.Get(middleware.HeaderUserID))
	recs, err := h.svc.History(r.Context(), callerID, userID, limit)
	if err != nil {
		h.fail(w, r, err, userID)
		return
	}
	if recs == nil {
		recs = []*domain.Recommendation{}
	}
	transport.WriteJSON(w, http.StatusOK, historyResponse{UserID: userID, Recommendations: recs, Total: len(recs)})
}

func (h *AdvisorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", domain.DefaultStatsDays)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	st, err := h.svc.Stats(r.Context(), days)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	transport.WriteJSON(w, http.StatusOK, st)
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

func (h *AdvisorHandler) fail(w http.ResponseWriter, r *http.Request, err error, userID string) {
	log := observability.GetLogger(r.Context())

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", inputMessage(err))
	case errors.Is(err, domain.ErrForbidden):
		transport.WriteError(w, http.StatusForbidden, "forbidden", "recommendations are only available for yourself")
	case errors.Is(err, domain.ErrUserNotFound):
		transport.WriteError(w, http.StatusNotFound, "not_found", fmt.Sprintf("User %s not found", userID))
	case errors.Is(err, domain.ErrCityNotSpecified):
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", "User city is not specified")
	case errors.Is(err, domain.ErrForecastUnavailable):
		msg := "Weather forecast not available"
		var fe *domain.ForecastUnavailableError
		if errors.As(err, &fe) && fe.Location != "" {
			msg += " for " + fe.Location
		}
		transport.WriteError(w, http.StatusNotFound, "not_found", msg)
	case errors.Is(err, domain.ErrUpstream):
		log.Error("upstream failure", zap.Error(err))
		transport.WriteError(w, http.StatusBadGateway, "bad_gateway", "a dependent service is unavailable")
	default:
		log.Error("internal_error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
		transport.WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

func inputMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrInvalidInput.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
