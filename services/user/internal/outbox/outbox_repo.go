package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/carwash-app/carwash/internal/database"
)

// MaxAttempts is how many failed publishes a row gets before Fetch stops
// returning it. Such rows stay in the table for inspection.
const MaxAttempts = 10

// Row is a single unpublished outbox entry.
type Row struct {
	ID       string
	Topic    string
	Key      string
	Payload  []byte
	Attempts int
	// Headers carry the trace context of the request that staged the row.
	Headers map[string]string
}

// Repository manages the transactional outbox table.
type Repository struct{ DB *sql.DB }

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// InsertTx stages an event inside the caller's transaction, or directly when
// tx is nil. The trace context of ctx is stored with the row.
func (r *Repository) InsertTx(ctx context.Context, tx *sql.Tx, topic, key string, payload []byte) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers, err := json.Marshal(carrier)
	if err != nil {
		return fmt.Errorf("encode outbox headers: %w", err)
	}

	_, err = database.Conn(r.DB, tx).ExecContext(ctx,
		`INSERT INTO outbox (id, topic, key, payload, headers) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), topic, key, payload, headers)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

// Fetch returns up to limit deliverable rows in insertion order.
func (r *Repository) Fetch(ctx context.Context, limit int) ([]Row, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, topic, key, payload, attempts, headers
		FROM outbox
		WHERE published_at IS NULL AND attempts < $1
		ORDER BY created_at
		LIMIT $2`, MaxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row     Row
			headers []byte
		)
		if err := rows.Scan(&row.ID, &row.Topic, &row.Key, &row.Payload, &row.Attempts, &headers); err != nil {
			return nil, err
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &row.Headers); err != nil {
				return nil, fmt.Errorf("decode outbox headers %s: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE outbox SET published_at = NOW() WHERE id = $1`, id)
	return err
}

// MarkFailed counts a failed delivery and keeps the broker's error.
func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	return err
}

// DeletePublishedBefore drops delivered rows older than before.
func (r *Repository) DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return res.RowsAffected()
}
