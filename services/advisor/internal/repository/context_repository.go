package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

type ContextRepository struct {
	db *sql.DB
}

func NewContextRepository(db *sql.DB) *ContextRepository {
	return &ContextRepository{db: db}
}

// Upsert replaces the stored context of c.UserID and returns the stored row.
func (r *ContextRepository) Upsert(ctx context.Context, c domain.UserContext) (*domain.UserContext, error) {
	var lastWash interface{}
	if c.LastWashDate != nil {
		lastWash = *c.LastWashDate
	}

	var (
		out      domain.UserContext
		city     sql.NullString
		country  sql.NullString
		lastDate sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_context (id, user_id, city, country, last_wash_date, preferred_wash_interval, last_sync)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			city                    = EXCLUDED.city,
			country                 = EXCLUDED.country,
			last_wash_date          = EXCLUDED.last_wash_date,
			preferred_wash_interval = EXCLUDED.preferred_wash_interval,
			last_sync               = EXCLUDED.last_sync,
			updated_at              = NOW()
		RETURNING user_id, city, country, last_wash_date, preferred_wash_interval, last_sync`,
		uuid.NewString(), c.UserID, c.City, c.Country, lastWash, c.PreferredWashInterval, c.LastSync,
	).Scan(&out.UserID, &city, &country, &lastDate, &out.PreferredWashInterval, &out.LastSync)
	if err != nil {
		return nil, fmt.Errorf("upsert user context: %w", err)
	}

	if city.Valid {
		out.City = &city.String
	}
	if country.Valid {
		out.Country = &country.String
	}
	if lastDate.Valid {
		d := calendar.Of(lastDate.Time)
		out.LastWashDate = &d
	}
	return &out, nil
}
