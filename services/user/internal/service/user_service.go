package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/internal/events"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/services/user/internal/domain"
	"github.com/carwash-app/carwash/services/user/internal/security"
)

type Repository interface {
	Create(ctx context.Context, tx *sql.Tx, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, tx *sql.Tx, id string, p domain.UserPatch) (*domain.User, error)
}

type Cache interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Set(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
}

// Outbox stages events in the same transaction as the write that caused them.
type Outbox interface {
	InsertTx(ctx context.Context, tx *sql.Tx, topic, key string, payload []byte) error
}

type TokenIssuer interface {
	Issue(userID, username string) (string, time.Time, error)
}

// UserService handles registration, login and profile updates.
type UserService struct {
	repo   Repository
	cache  Cache
	outbox Outbox
	tx     database.Transactor
	tokens TokenIssuer
}

// NewUserService wires the service. cache may be nil when Redis is not configured.
func NewUserService(r Repository, c Cache, o Outbox, tx database.Transactor, t TokenIssuer) *UserService {
	return &UserService{repo: r, cache: c, outbox: o, tx: tx, tokens: t}
}

// Register creates a user and stages a user.created event.
func (s *UserService) Register(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len([]rune(username)) > domain.MaxUsernameLength {
		return nil, fmt.Errorf("%w: username must be 1 to %d characters", domain.ErrInvalidInput, domain.MaxUsernameLength)
	}

	interval := in.PreferredWashInterval
	if interval == 0 {
		interval = domain.DefaultWashInterval
	}
	if interval < 1 || interval > 14 {
		return nil, fmt.Errorf("%w: preferred_wash_interval must be between 1 and 14", domain.ErrInvalidInput)
	}

	country := in.Country
	if country == nil {
		c := domain.DefaultCountry
		country = &c
	}

	if len(in.Password) > security.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, security.MaxPasswordBytes)
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:                    uuid.NewString(),
		Username:              username,
		Email:                 strings.TrimSpace(in.Email),
		HashedPassword:        hash,
		City:                  trimmed(in.City),
		Country:               country,
		PreferredWashInterval: interval,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.Create(ctx, tx, u); err != nil {
			return err
		}
		return s.stageEvent(ctx, tx, events.TopicUserCreated, u)
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	observability.GetLogger(ctx).Info("user_created", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login checks the credentials and returns a signed access token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			loginsTotal.WithLabelValues("unknown_user").Inc()
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if err := security.ComparePassword(u.HashedPassword, password); err != nil {
		result := "bad_password"
		if !errors.Is(err, security.ErrPasswordMismatch) {
			result = "unreadable_hash"
			observability.GetLogger(ctx).Error("stored password hash unreadable", zap.String("user_id", u.ID), zap.Error(err))
		}
		loginsTotal.WithLabelValues(result).Inc()
		return "", domain.ErrInvalidCredentials
	}

	access, _, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return "", err
	}

	loginsTotal.WithLabelValues("success").Inc()
	observability.GetLogger(ctx).Info("user_login_success", zap.String("user_id", u.ID))
	return access, nil
}

// Get returns a profile, preferring the cache.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}

	if s.cache != nil {
		u, err := s.cache.Get(ctx, id)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, redis.Nil) {
			observability.GetLogger(ctx).Warn("profile cache read failed", zap.Error(err))
		}
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, u); err != nil {
			observability.GetLogger(ctx).Warn("profile cache write failed", zap.Error(err))
		}
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update applies p to the user id on behalf of callerID, who must be that user.
func (s *UserService) Update(ctx context.Context, callerID, id string, p domain.UserPatch) (*domain.User, error) {
	if callerID != id {
		observability.GetLogger(ctx).Warn("unauthorized_update_attempt",
			zap.String("caller_id", callerID), zap.String("user_id", id))
		return nil, domain.ErrForbidden
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	if p.PreferredWashInterval != nil && (*p.PreferredWashInterval < 1 || *p.PreferredWashInterval > 14) {
		return nil, fmt.Errorf("%w: preferred_wash_interval must be between 1 and 14", domain.ErrInvalidInput)
	}
	p.City = trimmed(p.City)

	var u *domain.User
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		u, err = s.repo.Update(ctx, tx, id, p)
		if err != nil {
			return err
		}
		return s.stageEvent(ctx, tx, events.TopicUserUpdated, u)
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			observability.GetLogger(ctx).Warn("profile cache invalidate failed", zap.Error(err))
		}
	}
	return u, nil
}

// SetWashDate records the day of the user's last wash.
func (s *UserService) SetWashDate(ctx context.Context, callerID, id string, d calendar.Date) (*domain.User, error) {
	return s.Update(ctx, callerID, id, domain.UserPatch{LastWashDate: &d})
}

func (s *UserService) stageEvent(ctx context.Context, tx *sql.Tx, topic string, u *domain.User) error {
	payload, err := json.Marshal(events.UserEvent{
		Type:                  topic,
		UserID:                u.ID,
		Username:              u.Username,
		City:                  u.City,
		Country:               u.Country,
		LastWashDate:          u.LastWashDate,
		PreferredWashInterval: u.PreferredWashInterval,
		OccurredAt:            time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	if err := s.outbox.InsertTx(ctx, tx, topic, u.ID, payload); err != nil {
		return fmt.Errorf("save outbox event: %w", err)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
