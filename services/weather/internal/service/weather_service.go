package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

type Locations interface {
	FindByCity(ctx context.Context, city string) (*domain.Location, error)
	Upsert(ctx context.Context, tx *sql.Tx, l domain.Location) (*domain.Location, error)
}

type Forecasts interface {
	Cached(ctx context.Context, locationID string, from calendar.Date, freshSince time.Time, days int) ([]domain.ForecastDay, error)
	UpsertMany(ctx context.Context, tx *sql.Tx, locationID string, days []domain.ForecastDay) error
	DeleteStale(ctx context.Context, tx *sql.Tx, locationID string, before time.Time) (int64, error)
}

type RequestLogs interface {
	Insert(ctx context.Context, l domain.RequestLog) error
	Stats(ctx context.Context, since time.Time) (domain.RequestStats, error)
}

// Cache is the Redis hot cache in front of Postgres.
type Cache interface {
	Get(ctx context.Context, city string, days int) (*domain.ForecastResponse, error)
	Set(ctx context.Context, city string, days int, resp *domain.ForecastResponse) error
}

type Provider interface {
	Forecast(ctx context.Context, city string, days int) (*domain.ProviderForecast, error)
}

// WeatherService answers forecast requests from the hot cache, the forecast
// table or the provider, in that order.
type WeatherService struct {
	locations Locations
	forecasts Forecasts
	logs      RequestLogs
	cache     Cache
	provider  Provider
	tx        database.Transactor
	ttl       time.Duration

	group singleflight.Group
	now   func() time.Time
}

// NewWeatherService wires the service. cache may be nil when Redis is not configured.
func NewWeatherService(
	l Locations,
	f Forecasts,
	logs RequestLogs,
	c Cache,
	p Provider,
	tx database.Transactor,
	ttl time.Duration,
) *WeatherService {
	return &WeatherService{
		locations: l,
		forecasts: f,
		logs:      logs,
		cache:     c,
		provider:  p,
		tx:        tx,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *WeatherService) Forecast(ctx context.Context, city string, days int) (*domain.ForecastResponse, error) {
	city = strings.TrimSpace(city)
	if len([]rune(city)) < 2 {
		return nil, fmt.Errorf("%w: city must be at least 2 characters", domain.ErrInvalidInput)
	}
	if days < domain.MinDays || days > domain.MaxDays {
		return nil, fmt.Errorf("%w: days must be between %d and %d", domain.ErrInvalidInput, domain.MinDays, domain.MaxDays)
	}
	log := observability.GetLogger(ctx).With(zap.String("city", city), zap.Int("days", days))

	if s.cache != nil {
		resp, err := s.cache.Get(ctx, city, days)
		if err == nil {
			cacheLookupsTotal.WithLabelValues("redis").Inc()
			return s.fromCache(resp.Location, resp.Forecast), nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Warn("forecast cache read failed", zap.Error(err))
		}
	}

	resp, err := s.fromDatabase(ctx, city, days)
	if err != nil {
		return nil, err
	}
	if resp != nil {
		cacheLookupsTotal.WithLabelValues("db").Inc()
		log.Info("forecast served from cache")
		s.storeHot(ctx, city, days, resp)
		return resp, nil
	}

	cacheLookupsTotal.WithLabelValues("miss").Inc()
	log.Info("fetching fresh forecast")

	// Concurrent misses for one city share a single provider round trip. The
	// fetch outlives a caller that gives up so the others still get a result.
	key := strings.ToLower(city) + ":" + strconv.Itoa(days)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx), city, days)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		fresh := *res.Val.(*domain.ForecastResponse)
		fresh.RequestedAt = s.now()
		return &fresh, nil
	}
}

// fromDatabase returns nil when the table cannot serve days fresh rows.
func (s *WeatherService) fromDatabase(ctx context.Context, city string, days int) (*domain.ForecastResponse, error) {
	loc, err := s.locations.FindByCity(ctx, city)
	if err != nil {
		if errors.Is(err, domain.ErrLocationNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find location: %w", err)
	}

	now := s.now()
	rows, err := s.forecasts.Cached(ctx, loc.ID, calendar.Of(now), now.Add(-s.ttl), days)
	if err != nil {
		return nil, fmt.Errorf("read cached forecast: %w", err)
	}
	if len(rows) < days {
		return nil, nil
	}
	return s.fromCache(*loc, rows), nil
}

func (s *WeatherService) fromCache(loc domain.Location, days []domain.ForecastDay) *domain.ForecastResponse {
	return &domain.ForecastResponse{
		Location:    loc,
		Forecast:    days,
		Cached:      true,
		RequestedAt: s.now(),
		Source:      domain.SourceCache,
	}
}

func (s *WeatherService) fetch(ctx context.Context, city string, days int) (*domain.ForecastResponse, error) {
	pf, err := s.provider.Forecast(ctx, city, days)
	if err != nil {
		return nil, err
	}

	pf.Location.ID = uuid.NewString()
	var loc *domain.Location
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		loc, err = s.locations.Upsert(ctx, tx, pf.Location)
		if err != nil {
			return err
		}
		if err := s.forecasts.UpsertMany(ctx, tx, loc.ID, pf.Days); err != nil {
			return err
		}
		deleted, err := s.forecasts.DeleteStale(ctx, tx, loc.ID, s.now().Add(-s.ttl))
		if err != nil {
			return err
		}
		if deleted > 0 {
			observability.GetLogger(ctx).Info("stale forecasts deleted",
				zap.String("location_id", loc.ID), zap.Int64("count", deleted))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store forecast: %w", err)
	}

	forecast := pf.Days
	if len(forecast) > days {
		forecast = forecast[:days]
	}
	for i := range forecast {
		forecast[i].FlagRain()
	}

	resp := &domain.ForecastResponse{
		Location:    *loc,
		Forecast:    forecast,
		RequestedAt: s.now(),
		Source:      domain.SourceProvider,
	}
	s.storeHot(ctx, city, days, resp)
	return resp, nil
}

func (s *WeatherService) storeHot(ctx context.Context, city string, days int, resp *domain.ForecastResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, city, days, resp); err != nil {
		observability.GetLogger(ctx).Warn("forecast cache write failed", zap.Error(err))
	}
}

// RecordRequest writes an api_request_logs row. Failures are logged, not returned.
func (s *WeatherService) RecordRequest(ctx context.Context, l domain.RequestLog) {
	if err := s.logs.Insert(ctx, l); err != nil {
		observability.GetLogger(ctx).Warn("request log write failed", zap.Error(err))
	}
}

// Stats summarizes request logs of the last hours.
func (s *WeatherService) Stats(ctx context.Context, hours int) (domain.RequestStats, error) {
	if hours < 1 || hours > 168 {
		return domain.RequestStats{}, fmt.Errorf("%w: hours must be between 1 and 168", domain.ErrInvalidInput)
	}

	st, err := s.logs.Stats(ctx, s.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return st, err
	}
	st.TimePeriodHours = hours
	if st.TotalRequests > 0 {
		st.CacheHitRate = float64(st.CachedRequests) / float64(st.TotalRequests)
	}
	return st, nil
}
