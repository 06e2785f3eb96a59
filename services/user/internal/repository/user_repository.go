package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/services/user/internal/domain"
)

const userColumns = `id, username, email, hashed_password, city, country, last_wash_date,
	preferred_wash_interval, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		city      sql.NullString
		country   sql.NullString
		lastWash  sql.NullTime
		updatedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &city, &country,
		&lastWash, &u.PreferredWashInterval, &u.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if city.Valid {
		u.City = &city.String
	}
	if country.Valid {
		u.Country = &country.String
	}
	if lastWash.Valid {
		d := calendar.Of(lastWash.Time)
		u.LastWashDate = &d
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		u.UpdatedAt = &t
	}
	return &u, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	return err
}

// Create inserts u and fills CreatedAt. A duplicate username or email maps to ErrUserConflict.
func (r *UserRepository) Create(ctx context.Context, tx *sql.Tx, u *domain.User) error {
	err := database.Conn(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, hashed_password, city, country, preferred_wash_interval)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.Username, u.Email, u.HashedPassword, u.City, u.Country, u.PreferredWashInterval,
	).Scan(&u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies the non-nil fields of p and returns the stored row.
func (r *UserRepository) Update(ctx context.Context, tx *sql.Tx, id string, p domain.UserPatch) (*domain.User, error) {
	var lastWash interface{}
	if p.LastWashDate != nil && !p.LastWashDate.IsZero() {
		lastWash = p.LastWashDate.Time()
	}

	u, err := scanUser(database.Conn(r.db, tx).QueryRowContext(ctx, `
		UPDATE users SET
			city                    = COALESCE($2, city),
			country                 = COALESCE($3, country),
			last_wash_date          = COALESCE($4::date, last_wash_date),
			preferred_wash_interval = COALESCE($5, preferred_wash_interval),
			updated_at              = $6
		WHERE id = $1
		RETURNING `+userColumns,
		id, p.City, p.Country, lastWash, p.PreferredWashInterval, time.Now().UTC()))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}
