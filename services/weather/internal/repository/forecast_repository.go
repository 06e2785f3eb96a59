package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

const forecastColumns = `date, temperature_min, temperature_max, temperature_avg,
	precipitation_probability, precipitation_amount, weather_code, weather_description,
	wind_speed, humidity`

type ForecastRepository struct {
	db *sql.DB
}

func NewForecastRepository(db *sql.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

func scanForecast(row rowScanner) (domain.ForecastDay, error) {
	var (
		d                        domain.ForecastDay
		tmin, tmax, tavg, pp, pa sql.NullFloat64
		wind                     sql.NullFloat64
		code, humidity           sql.NullInt64
		desc                     sql.NullString
	)
	err := row.Scan(&d.Date, &tmin, &tmax, &tavg, &pp, &pa, &code, &desc, &wind, &humidity)
	if err != nil {
		return d, err
	}

	d.TemperatureMin = nullFloat(tmin)
	d.TemperatureMax = nullFloat(tmax)
	d.TemperatureAvg = nullFloat(tavg)
	d.PrecipitationProbability = nullFloat(pp)
	d.PrecipitationAmount = nullFloat(pa)
	d.WindSpeed = nullFloat(wind)
	d.WeatherCode = nullInt(code)
	d.Humidity = nullInt(humidity)
	if desc.Valid {
		d.WeatherDescription = &desc.String
	}
	d.FlagRain()
	return d, nil
}

// Cached returns up to days rows for locationID starting at from that were
// fetched after freshSince, ordered by date.
func (r *ForecastRepository) Cached(
	ctx context.Context,
	locationID string,
	from calendar.Date,
	freshSince time.Time,
	days int,
) ([]domain.ForecastDay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+forecastColumns+` FROM weather_forecasts
		WHERE location_id = $1 AND date >= $2 AND fetched_at > $3
		ORDER BY date
		LIMIT $4`,
		locationID, from, freshSince, days)
	if err != nil {
		return nil, fmt.Errorf("cached forecasts: %w", err)
	}
	defer rows.Close()

	out := []domain.ForecastDay{}
	for rows.Next() {
		d, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertMany writes one row per day, replacing any row for the same date.
func (r *ForecastRepository) UpsertMany(ctx context.Context, tx *sql.Tx, locationID string, days []domain.ForecastDay) error {
	q := database.Conn(r.db, tx)
	for _, d := range days {
		var raw interface{}
		if len(d.Raw) > 0 {
			raw = string(d.Raw)
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO weather_forecasts (
				id, location_id, date, temperature_min, temperature_max, temperature_avg,
				precipitation_probability, precipitation_amount, weather_code, weather_description,
				wind_speed, humidity, sunrise, sunset, raw_data, forecast_source, is_cached, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 'weatherapi', TRUE, NOW())
			ON CONFLICT (location_id, date) DO UPDATE SET
				temperature_min           = EXCLUDED.temperature_min,
				temperature_max           = EXCLUDED.temperature_max,
				temperature_avg           = EXCLUDED.temperature_avg,
				precipitation_probability = EXCLUDED.precipitation_probability,
				precipitation_amount      = EXCLUDED.precipitation_amount,
				weather_code              = EXCLUDED.weather_code,
				weather_description       = EXCLUDED.weather_description,
				wind_speed                = EXCLUDED.wind_speed,
				humidity                  = EXCLUDED.humidity,
				sunrise                   = EXCLUDED.sunrise,
				sunset                    = EXCLUDED.sunset,
				raw_data                  = EXCLUDED.raw_data,
				fetched_at                = NOW(),
				updated_at                = NOW()`,
			uuid.NewString(), locationID, d.Date,
			d.TemperatureMin, d.TemperatureMax, d.TemperatureAvg,
			d.PrecipitationProbability, d.PrecipitationAmount, d.WeatherCode, d.WeatherDescription,
			d.WindSpeed, d.Humidity, d.Sunrise, d.Sunset, raw,
		)
		if err != nil {
			return fmt.Errorf("upsert forecast %s: %w", d.Date, err)
		}
	}
	return nil
}

// DeleteStale removes rows for locationID fetched before the given instant.
func (r *ForecastRepository) DeleteStale(ctx context.Context, tx *sql.Tx, locationID string, before time.Time) (int64, error) {
	res, err := database.Conn(r.db, tx).ExecContext(ctx,
		`DELETE FROM weather_forecasts WHERE location_id = $1 AND fetched_at < $2`,
		locationID, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale forecasts: %w", err)
	}
	return res.RowsAffected()
}

// Cleanup removes cached rows fetched before the given instant whose date is before today.
func (r *ForecastRepository) Cleanup(ctx context.Context, before time.Time, today calendar.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM weather_forecasts WHERE is_cached AND fetched_at < $1 AND date < $2`,
		before, today)
	if err != nil {
		return 0, fmt.Errorf("cleanup forecasts: %w", err)
	}
	return res.RowsAffected()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
