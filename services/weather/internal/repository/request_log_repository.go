package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

type RequestLogRepository struct {
	db *sql.DB
}

func NewRequestLogRepository(db *sql.DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

func (r *RequestLogRepository) Insert(ctx context.Context, l domain.RequestLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_request_logs (id, location, endpoint, response_status, response_time_ms, was_cached, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), l.Location, l.Endpoint, l.ResponseStatus, l.ResponseTimeMS, l.WasCached, l.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// Stats aggregates the log rows written since the given instant.
func (r *RequestLogRepository) Stats(ctx context.Context, since time.Time) (domain.RequestStats, error) {
	var s domain.RequestStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE was_cached),
			COUNT(*) FILTER (WHERE response_status >= 400)
		FROM api_request_logs
		WHERE requested_at >= $1`, since,
	).Scan(&s.TotalRequests, &s.CachedRequests, &s.ErrorRequests)
	if err != nil {
		return s, fmt.Errorf("request stats: %w", err)
	}
	return s, nil
}

func (r *RequestLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_request_logs WHERE requested_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete request logs: %w", err)
	}
	return res.RowsAffected()
}
