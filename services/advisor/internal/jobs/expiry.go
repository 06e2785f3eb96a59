package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
)

type ExpiredPurger interface {
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// ExpiryCleanup removes recommendations that expired longer ago than Retention.
// Expired rows inside the window stay for history and stats.
type ExpiryCleanup struct {
	Recs      ExpiredPurger
	Retention time.Duration

	now func() time.Time
}

func NewExpiryCleanup(r ExpiredPurger, retention time.Duration) *ExpiryCleanup {
	return &ExpiryCleanup{
		Recs:      r,
		Retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (c *ExpiryCleanup) Name() string { return "advisor_expiry_cleanup" }

func (c *ExpiryCleanup) Run(ctx context.Context) error {
	n, err := c.Recs.DeleteExpiredBefore(ctx, c.now().Add(-c.Retention))
	if err != nil {
		return fmt.Errorf("purge recommendations: %w", err)
	}
	observability.GetLogger(ctx).Info("advisor cleanup done", zap.Int64("recommendations_deleted", n))
	return nil
}
