package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

const recommendationColumns = `id, user_id, location, recommendation_date, temperature,
	precipitation_probability, precipitation_amount, wind_speed, humidity, weather_description,
	score, is_recommended, COALESCE(reason, ''), is_rain_expected, is_temperature_optimal,
	is_wind_acceptable, days_since_last_wash, is_interval_optimal, forecast_source,
	created_at, expires_at`

type RecommendationRepository struct {
	db *sql.DB
}

func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecommendation(row rowScanner) (*domain.Recommendation, error) {
	var (
		r                   domain.Recommendation
		temp, prob, amount  sql.NullFloat64
		wind                sql.NullFloat64
		humidity, daysSince sql.NullInt64
		desc                sql.NullString
		intervalOptimal     sql.NullBool
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Location, &r.RecommendationDate, &temp,
		&prob, &amount, &wind, &humidity, &desc,
		&r.Score, &r.IsRecommended, &r.Reason, &r.IsRainExpected, &r.IsTemperatureOptimal,
		&r.IsWindAcceptable, &daysSince, &intervalOptimal, &r.ForecastSource,
		&r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		return nil, err
	}

	r.Temperature = nullFloat(temp)
	r.PrecipitationProbability = nullFloat(prob)
	r.PrecipitationAmount = nullFloat(amount)
	r.WindSpeed = nullFloat(wind)
	r.Humidity = nullInt(humidity)
	r.DaysSinceLastWash = nullInt(daysSince)
	if desc.Valid {
		r.WeatherDescription = &desc.String
	}
	if intervalOptimal.Valid {
		r.IsIntervalOptimal = &intervalOptimal.Bool
	}
	return &r, nil
}

// Insert stores r and fills CreatedAt.
func (repo *RecommendationRepository) Insert(ctx context.Context, r *domain.Recommendation) error {
	var raw interface{}
	if len(r.RawForecast) > 0 {
		raw = string(r.RawForecast)
	}

	err := repo.db.QueryRowContext(ctx, `
		INSERT INTO wash_recommendations (
			id, user_id, location, recommendation_date, temperature,
			precipitation_probability, precipitation_amount, wind_speed, humidity, weather_description,
			score, is_recommended, reason, is_rain_expected, is_temperature_optimal,
			is_wind_acceptable, days_since_last_wash, is_interval_optimal, forecast_source,
			raw_forecast_data, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING created_at`,
		r.ID, r.UserID, r.Location, r.RecommendationDate, r.Temperature,
		r.PrecipitationProbability, r.PrecipitationAmount, r.WindSpeed, r.Humidity, r.WeatherDescription,
		r.Score, r.IsRecommended, r.Reason, r.IsRainExpected, r.IsTemperatureOptimal,
		r.IsWindAcceptable, r.DaysSinceLastWash, r.IsIntervalOptimal, r.ForecastSource,
		raw, r.ExpiresAt,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// Latest returns the newest recommended, unexpired row for the user and
// location, or nil when there is none.
func (repo *RecommendationRepository) Latest(ctx context.Context, userID, location string, now time.Time) (*domain.Recommendation, error) {
	r, err := scanRecommendation(repo.db.QueryRowContext(ctx, `
		SELECT `+recommendationColumns+` FROM wash_recommendations
		WHERE user_id = $1 AND location = $2 AND is_recommended AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`, userID, location, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest recommendation: %w", err)
	}
	return r, nil
}

func (repo *RecommendationRepository) History(ctx context.Context, userID string, limit int) ([]*domain.Recommendation, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT `+recommendationColumns+` FROM wash_recommendations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recommendation history: %w", err)
	}
	defer rows.Close()

	out := []*domain.Recommendation{}
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates rows created since the given instant. The average score is
// rounded to two decimals and nil when there are no rows.
func (repo *RecommendationRepository) Stats(ctx context.Context, since time.Time) (domain.ServiceStats, error) {
	var (
		s   domain.ServiceStats
		avg sql.NullFloat64
	)
	err := repo.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_recommended),
			COUNT(DISTINCT user_id),
			AVG(score)
		FROM wash_recommendations
		WHERE created_at >= $1`, since,
	).Scan(&s.TotalRecommendations, &s.SuccessfulRecommendations, &s.TotalUsers, &avg)
	if err != nil {
		return s, fmt.Errorf("recommendation stats: %w", err)
	}
	if avg.Valid {
		v := math.Round(avg.Float64*100) / 100
		s.AverageScore = &v
	}
	return s, nil
}

// ExpireForUser ends the validity of every live row of userID.
func (repo *RecommendationRepository) ExpireForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE wash_recommendations SET expires_at = $2 WHERE user_id = $1 AND expires_at > $2`,
		userID, now)
	if err != nil {
		return 0, fmt.Errorf("expire recommendations: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpiredBefore removes rows whose validity ended before the given instant.
func (repo *RecommendationRepository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM wash_recommendations WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired recommendations: %w", err)
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
