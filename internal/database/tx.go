package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error
}

// ErrTxRetryExhausted wraps the last conflict once every attempt has failed.
var ErrTxRetryExhausted = errors.New("transaction retry exhausted")

const (
	maxTxAttempts = 5
	txRetryBase   = 10 * time.Millisecond
)

type TxManager struct {
	DB *sql.DB
}

// WithTx runs fn in a read-committed transaction. Serialization failures and
// deadlocks restart fn in a fresh transaction after a short linear pause; any
// other error rolls back and is returned as is.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * txRetryBase):
			}
		}

		lastErr = m.attempt(ctx, fn)
		if lastErr == nil || !isSerializationError(lastErr) {
			return lastErr
		}
		observability.GetLogger(ctx).Debug("transaction conflict, retrying",
			zap.Int("attempt", attempt), zap.Error(lastErr))
	}
	return fmt.Errorf("%w: %v", ErrTxRetryExhausted, lastErr)
}

func (m *TxManager) attempt(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := m.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			observability.GetLogger(ctx).Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}
