package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

const locationColumns = `id, city_name, COALESCE(country, 'Unknown'), lat, lon, created_at`

type LocationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(row rowScanner) (*domain.Location, error) {
	var l domain.Location
	if err := row.Scan(&l.ID, &l.CityName, &l.Country, &l.Lat, &l.Lon, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByCity matches city case-insensitively, falling back to the shortest
// name starting with city.
func (r *LocationRepository) FindByCity(ctx context.Context, city string) (*domain.Location, error) {
	l, err := scanLocation(r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE lower(city_name) = lower($1)`, city))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find location: %w", err)
	}

	l, err = scanLocation(r.db.QueryRowContext(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE city_name ILIKE $1 ESCAPE '\'
		ORDER BY length(city_name), city_name
		LIMIT 1`, escapeLike(city)+"%"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	return l, nil
}

// Upsert stores l keyed by its lowercased name and returns the stored row.
func (r *LocationRepository) Upsert(ctx context.Context, tx *sql.Tx, l domain.Location) (*domain.Location, error) {
	out, err := scanLocation(database.Conn(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO locations (id, city_name, country, lat, lon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ((lower(city_name))) DO UPDATE SET
			country = EXCLUDED.country,
			lat     = EXCLUDED.lat,
			lon     = EXCLUDED.lon
		RETURNING `+locationColumns,
		l.ID, l.CityName, l.Country, l.Lat, l.Lon))
	if err != nil {
		return nil, fmt.Errorf("upsert location: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
