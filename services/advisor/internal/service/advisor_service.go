package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/events"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
	"github.com/carwash-app/carwash/services/advisor/internal/scoring"
)

type Users interface {
	User(ctx context.Context, id string) (*domain.User, error)
}

type Weather interface {
	Forecast(ctx context.Context, city string, days int) (*domain.Forecast, error)
}

type Recommendations interface {
	Insert(ctx context.Context, r *domain.Recommendation) error
	Latest(ctx context.Context, userID, location string, now time.Time) (*domain.Recommendation, error)
	History(ctx context.Context, userID string, limit int) ([]*domain.Recommendation, error)
	Stats(ctx context.Context, since time.Time) (domain.ServiceStats, error)
	ExpireForUser(ctx context.Context, userID string, now time.Time) (int64, error)
}

type Contexts interface {
	Upsert(ctx context.Context, c domain.UserContext) (*domain.UserContext, error)
}

// AdvisorService picks the best day to wash a user's car from their city's forecast.
type AdvisorService struct {
	users    Users
	weather  Weather
	recs     Recommendations
	contexts Contexts
	params   scoring.Params
	ttl      time.Duration

	now func() time.Time
}

func NewAdvisorService(u Users, w Weather, r Recommendations, c Contexts, p scoring.Params, ttl time.Duration) *AdvisorService {
	return &AdvisorService{
		users:    u,
		weather:  w,
		recs:     r,
		contexts: c,
		params:   p,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Recommend answers a recommendation request. callerID is the authenticated
// user forwarded by the gateway; when set it must match req.UserID, and an
// empty req.UserID is taken from it.
func (s *AdvisorService) Recommend(ctx context.Context, callerID string, req domain.RecommendRequest) (*domain.RecommendResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if callerID != "" {
		if req.UserID == "" {
			req.UserID = callerID
		} else if req.UserID != callerID {
			observability.GetLogger(ctx).Warn("recommendation for another user refused",
				zap.String("caller_id", callerID), zap.String("user_id", req.UserID))
			return nil, domain.ErrForbidden
		}
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	if req.Days < domain.MinDays || req.Days > domain.MaxDays {
		return nil, fmt.Errorf("%w: days must be between %d and %d", domain.ErrInvalidInput, domain.MinDays, domain.MaxDays)
	}
	log := observability.GetLogger(ctx).With(zap.String("user_id", req.UserID))

	user, err := s.users.User(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.City == nil || strings.TrimSpace(*user.City) == "" {
		return nil, domain.ErrCityNotSpecified
	}
	city := strings.TrimSpace(*user.City)

	now := s.now()
	uc := s.syncContext(ctx, contextFromUser(req.UserID, user, now))
	metrics := scoring.Metrics(uc, calendar.Of(now))

	resp := &domain.RecommendResponse{
		UserID:            req.UserID,
		Location:          city,
		AnalysisDate:      now,
		DaysSinceLastWash: metrics.DaysSinceLastWash,
		IsIntervalOptimal: metrics.IsIntervalOptimal,
	}

	if !req.ForceRefresh {
		latest, err := s.recs.Latest(ctx, req.UserID, city, now)
		if err != nil {
			log.Warn("cached recommendation lookup failed", zap.Error(err))
		}
		if latest != nil {
			day := latest.Day()
			resp.BestDay = &day
			resp.AllDays = []domain.DayRecommendation{day}
			resp.Cached = true
			recommendationsTotal.WithLabelValues(strconv.FormatBool(true)).Inc()
			log.Info("cached recommendation returned", zap.String("recommendation_id", latest.ID))
			return resp, nil
		}
	}

	forecast, err := s.weather.Forecast(ctx, city, req.Days)
	if err != nil {
		return nil, err
	}

	analyses := make([]scoring.Analysis, 0, len(forecast.Days))
	resp.AllDays = make([]domain.DayRecommendation, 0, len(forecast.Days))
	for _, d := range forecast.Days {
		a := s.params.Analyze(d, metrics)
		analyses = append(analyses, a)
		resp.AllDays = append(resp.AllDays, s.params.Recommendation(a))
	}

	best, ok := s.params.Best(analyses)
	if ok {
		day := s.params.Recommendation(best)
		resp.BestDay = &day
		s.persist(ctx, req.UserID, city, best, metrics, now)
	}

	recommendationsTotal.WithLabelValues(strconv.FormatBool(false)).Inc()
	log.Info("recommendation ready", zap.String("city", city), zap.Int("days", len(resp.AllDays)))
	return resp, nil
}

// syncContext stores uc and returns what was stored. A storage failure is
// logged and uc is used as is.
func (s *AdvisorService) syncContext(ctx context.Context, uc domain.UserContext) domain.UserContext {
	stored, err := s.contexts.Upsert(ctx, uc)
	if err != nil {
		observability.GetLogger(ctx).Warn("user context sync failed", zap.String("user_id", uc.UserID), zap.Error(err))
		return uc
	}
	return *stored
}

func (s *AdvisorService) persist(ctx context.Context, userID, city string, best scoring.Analysis, m domain.ContextMetrics, now time.Time) {
	raw, _ := json.Marshal(best.Day)

	rec := &domain.Recommendation{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		Location:                 city,
		RecommendationDate:       best.Day.Date,
		Temperature:              best.Day.TemperatureAvg,
		PrecipitationProbability: best.Day.PrecipitationProbability,
		PrecipitationAmount:      best.Day.PrecipitationAmount,
		WindSpeed:                best.Day.WindSpeed,
		Humidity:                 best.Day.Humidity,
		WeatherDescription:       best.Day.WeatherDescription,
		Score:                    best.Score,
		IsRecommended:            s.params.Recommended(best),
		Reason:                   best.Reason,
		IsRainExpected:           best.Factors.IsRainExpected,
		IsTemperatureOptimal:     best.Factors.IsTemperatureOptimal,
		IsWindAcceptable:         best.Factors.IsWindAcceptable,
		DaysSinceLastWash:        m.DaysSinceLastWash,
		IsIntervalOptimal:        m.IsIntervalOptimal,
		ForecastSource:           domain.ForecastSource,
		RawForecast:              raw,
		ExpiresAt:                now.Add(s.ttl),
	}
	if err := s.recs.Insert(ctx, rec); err != nil {
		observability.GetLogger(ctx).Error("recommendation not saved", zap.String("user_id", userID), zap.Error(err))
	}
}

// History lists a user's stored recommendations. A non-empty callerID must
// match userID.
func (s *AdvisorService) History(ctx context.Context, callerID, userID string, limit int) ([]*domain.Recommendation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	if callerID != "" && callerID != userID {
		observability.GetLogger(ctx).Warn("recommendation history for another user refused",
			zap.String("caller_id", callerID), zap.String("user_id", userID))
		return nil, domain.ErrForbidden
	}
	if limit < 1 || limit > domain.MaxHistoryLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, domain.MaxHistoryLimit)
	}
	return s.recs.History(ctx, userID, limit)
}

func (s *AdvisorService) Stats(ctx context.Context, days int) (domain.ServiceStats, error) {
	if days < 1 || days > domain.MaxStatsDays {
		return domain.ServiceStats{}, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, domain.MaxStatsDays)
	}

	now := s.now()
	st, err := s.recs.Stats(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return st, err
	}
	st.Timestamp = now
	return st, nil
}

// ApplyUserEvent refreshes the local context from a user lifecycle event and
// ends the validity of recommendations computed from the old profile.
func (s *AdvisorService) ApplyUserEvent(ctx context.Context, ev events.UserEvent) error {
	if ev.UserID == "" {
		return fmt.Errorf("%w: event without user_id", domain.ErrInvalidInput)
	}

	interval := ev.PreferredWashInterval
	if interval == 0 {
		interval = domain.DefaultWashInterval
	}

	now := s.now()
	if _, err := s.contexts.Upsert(ctx, domain.UserContext{
		UserID:                ev.UserID,
		City:                  ev.City,
		Country:               ev.Country,
		LastWashDate:          ev.LastWashDate,
		PreferredWashInterval: interval,
		LastSync:              now,
	}); err != nil {
		return err
	}

	if ev.Type == events.TopicUserUpdated {
		n, err := s.recs.ExpireForUser(ctx, ev.UserID, now)
		if err != nil {
			return err
		}
		if n > 0 {
			observability.GetLogger(ctx).Info("recommendations expired after profile change",
				zap.String("user_id", ev.UserID), zap.Int64("count", n))
		}
	}
	return nil
}

func contextFromUser(id string, u *domain.User, now time.Time) domain.UserContext {
	interval := u.PreferredWashInterval
	if interval == 0 {
		interval = domain.DefaultWashInterval
	}
	return domain.UserContext{
		UserID:                id,
		City:                  u.City,
		Country:               u.Country,
		LastWashDate:          u.LastWashDate,
		PreferredWashInterval: interval,
		LastSync:              now,
	}
}
