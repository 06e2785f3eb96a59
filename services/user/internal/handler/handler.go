package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/middleware"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/transport"
	"github.com/carwash-app/carwash/services/user/internal/domain"
)

type UserService interface {
	Register(ctx context.Context, in domain.NewUser) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, callerID, id string, p domain.UserPatch) (*domain.User, error)
	SetWashDate(ctx context.Context, callerID, id string, d calendar.Date) (*domain.User, error)
}

// UserHandler exposes the user and auth HTTP endpoints.
type UserHandler struct {
	svc         UserService
	db          observability.Pinger
	serviceName string
}

func NewUserHandler(s UserService, db observability.Pinger, serviceName string) *UserHandler {
	return &UserHandler{svc: s, db: db, serviceName: serviceName}
}

type createUserRequest struct {
	Username              string  `json:"username" validate:"required,max=20"`
	Email                 string  `json:"email" validate:"required,email,max=100"`
	Password              string  `json:"password" validate:"required,min=6,max=72,nospace"`
	City                  *string `json:"city" validate:"omitempty,max=100"`
	Country               *string `json:"country" validate:"omitempty,max=100"`
	PreferredWashInterval *int    `json:"preferred_wash_interval" validate:"omitempty,min=1,max=14"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	City                  *string        `json:"city" validate:"omitempty,max=100"`
	Country               *string        `json:"country" validate:"omitempty,max=100"`
	LastWashDate          *calendar.Date `json:"last_wash_date"`
	PreferredWashInterval *int           `json:"preferred_wash_interval" validate:"omitempty,min=1,max=14"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Health reports liveness together with database reachability.
func (h *UserHandler) Health(w http.ResponseWriter, r *http.Request) {
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

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := transport.DecodeJSON(w, r, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := transport.Validate(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}

	in := domain.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		City:     req.City,
		Country:  req.Country,
	}
	if req.PreferredWashInterval != nil {
		in.PreferredWashInterval = *req.PreferredWashInterval
	}

	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := transport.DecodeJSON(w, r, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}
	if err := transport.Validate(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}

	access, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer"})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, u)
}

// Me returns the authenticated caller's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := transport.DecodeJSON(w, r, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}
	if err := transport.Validate(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", transport.Message(err))
		return
	}

	u, err := h.svc.Update(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "user_id"), domain.UserPatch{
		City:                  req.City,
		Country:               req.Country,
		LastWashDate:          req.LastWashDate,
		PreferredWashInterval: req.PreferredWashInterval,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, u)
}

// UpdateWashDate takes the date from the wash_date query parameter.
func (h *UserHandler) UpdateWashDate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("wash_date")
	if raw == "" {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", "wash_date is required")
		return
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	u, err := h.svc.SetWashDate(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "user_id"), d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, u)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		transport.WriteError(w, http.StatusBadRequest, "invalid_argument", inputMessage(err))
	case errors.Is(err, domain.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "Incorrect username or password")
	case errors.Is(err, domain.ErrForbidden):
		transport.WriteError(w, http.StatusForbidden, "forbidden", "Not authorized to update this user")
	case errors.Is(err, domain.ErrUserNotFound):
		transport.WriteError(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, domain.ErrUserConflict):
		transport.WriteError(w, http.StatusConflict, "already_exists", "Username or email already exists")
	default:
		observability.GetLogger(r.Context()).Error("internal_error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
		transport.WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

// inputMessage drops the wrapping context in front of an ErrInvalidInput detail.
func inputMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrInvalidInput.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
