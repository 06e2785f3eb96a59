package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/observability"
)

type ForecastPurger interface {
	Cleanup(ctx context.Context, before time.Time, today calendar.Date) (int64, error)
}

type LogPurger interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Cleanup drops expired forecasts and request logs past retention.
type Cleanup struct {
	Forecasts    ForecastPurger
	Logs         LogPurger
	CacheTTL     time.Duration
	LogRetention time.Duration

	now func() time.Time
}

func NewCleanup(f ForecastPurger, l LogPurger, cacheTTL, retention time.Duration) *Cleanup {
	return &Cleanup{
		Forecasts:    f,
		Logs:         l,
		CacheTTL:     cacheTTL,
		LogRetention: retention,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (c *Cleanup) Name() string { return "weather_cleanup" }

func (c *Cleanup) Run(ctx context.Context) error {
	now := c.now()

	forecasts, err := c.Forecasts.Cleanup(ctx, now.Add(-c.CacheTTL), calendar.Of(now))
	if err != nil {
		return fmt.Errorf("purge forecasts: %w", err)
	}

	logs, err := c.Logs.DeleteBefore(ctx, now.Add(-c.LogRetention))
	if err != nil {
		return fmt.Errorf("purge request logs: %w", err)
	}

	observability.GetLogger(ctx).Info("weather cleanup done",
		zap.Int64("forecasts_deleted", forecasts),
		zap.Int64("logs_deleted", logs),
	)
	return nil
}
