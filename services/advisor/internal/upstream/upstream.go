// Package upstream talks to the User and Weather services.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carwash-app/carwash/internal/httpclient"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

type UserClient struct {
	c *httpclient.Client
}

func NewUserClient(c *httpclient.Client) *UserClient { return &UserClient{c: c} }

// User fetches a profile. A 404 (or a malformed id the service rejects) maps to ErrUserNotFound.
func (u *UserClient) User(ctx context.Context, id string) (*domain.User, error) {
	var out domain.User
	err := u.c.GetJSON(ctx, "/api/users/"+url.PathEscape(id), nil, &out)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusBadRequest) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: user service: %v", domain.ErrUpstream, err)
	}
	return &out, nil
}

type WeatherClient struct {
	c *httpclient.Client
}

func NewWeatherClient(c *httpclient.Client) *WeatherClient { return &WeatherClient{c: c} }

// Forecast asks the Weather Service for days of forecast. Any failure other
// than a transport error reads as ErrForecastUnavailable.
func (w *WeatherClient) Forecast(ctx context.Context, city string, days int) (*domain.Forecast, error) {
	q := url.Values{"city": {city}, "days": {strconv.Itoa(days)}}

	var out domain.Forecast
	if err := w.c.GetJSON(ctx, "/api/weather", q, &out); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			observability.GetLogger(ctx).Warn("weather service refused forecast",
				zap.String("city", city), zap.Int("status", se.Code))
			return nil, &domain.ForecastUnavailableError{Location: city}
		}
		return nil, fmt.Errorf("%w: weather service: %v", domain.ErrUpstream, err)
	}
	if len(out.Days) == 0 {
		return nil, &domain.ForecastUnavailableError{Location: city}
	}
	return &out, nil
}

// Status is "healthy" or "unhealthy" per upstream.
type Status struct {
	UserService    string
	WeatherService string
}

// Probe checks both services' /health endpoints concurrently.
func Probe(ctx context.Context, users, weather *httpclient.Client, timeout time.Duration) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	st := Status{UserService: "unhealthy", WeatherService: "unhealthy"}
	var g errgroup.Group
	g.Go(func() error {
		if users.Ping(ctx, "/health") == nil {
			st.UserService = "healthy"
		}
		return nil
	})
	g.Go(func() error {
		if weather.Ping(ctx, "/health") == nil {
			st.WeatherService = "healthy"
		}
		return nil
	})
	_ = g.Wait()
	return st
}
