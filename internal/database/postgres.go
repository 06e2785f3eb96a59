// Package database opens PostgreSQL connections, runs embedded migrations and
// wraps transactional work with retry.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Querier is the subset of *sql.DB and *sql.Tx used by repositories.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Conn returns tx when one is in flight, otherwise db.
func Conn(db *sql.DB, tx *sql.Tx) Querier {
	if tx != nil {
		return tx
	}
	return db
}

type Options struct {
	Attempts        int
	RetryDelay      time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultOptions() Options {
	return Options{
		Attempts:        5,
		RetryDelay:      3 * time.Second,
		MaxOpenConns:    30,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
	}
}

// Open connects to url and pings until the server answers or attempts run out.
func Open(ctx context.Context, url string, opts Options, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return db, nil
		}

		log.Warn("database not ready", zap.Int("attempt", i), zap.Int("of", attempts), zap.Error(err))
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	db.Close()
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempts, err)
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationError(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
