package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

var (
	recCols = []string{"id", "user_id", "location", "recommendation_date", "temperature",
		"precipitation_probability", "precipitation_amount", "wind_speed", "humidity", "weather_description",
		"score", "is_recommended", "reason", "is_rain_expected", "is_temperature_optimal",
		"is_wind_acceptable", "days_since_last_wash", "is_interval_optimal", "forecast_source",
		"created_at", "expires_at"}
	now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func recRow(rows *sqlmock.Rows, id string, score float64) *sqlmock.Rows {
	return rows.AddRow(id, "u-1", "Moscow", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), 18.0,
		0.1, 0.0, 10.0, 50, "Sunny",
		score, true, "Отличные условия для мойки", false, true,
		true, nil, nil, "weather-service",
		now, now.Add(24*time.Hour))
}

func TestInsertRecommendation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectQuery(`INSERT INTO wash_recommendations`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	r := &domain.Recommendation{ID: "r-1", UserID: "u-1", Location: "Moscow",
		RecommendationDate: calendar.New(2024, 5, 2), Score: 90, IsRecommended: true,
		ForecastSource: domain.ForecastSource, RawForecast: []byte(`{"date":"2024-05-02"}`),
		ExpiresAt: now.Add(24 * time.Hour)}
	require.NoError(t, repo.Insert(context.Background(), r))
	assert.Equal(t, now, r.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectQuery(`is_recommended AND expires_at > \$3`).
		WithArgs("u-1", "Moscow", now).
		WillReturnRows(recRow(sqlmock.NewRows(recCols), "r-1", 92.5))

	r, err := repo.Latest(context.Background(), "u-1", "Moscow", now)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "2024-05-02", r.RecommendationDate.String())
	assert.Equal(t, 92.5, r.Score)
	assert.Equal(t, 50, *r.Humidity)
	assert.Nil(t, r.DaysSinceLastWash)
	assert.Nil(t, r.IsIntervalOptimal)
}

func TestLatestNone(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectQuery(`FROM wash_recommendations`).WillReturnError(sql.ErrNoRows)

	r, err := repo.Latest(context.Background(), "u-1", "Moscow", now)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestHistory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	rows := sqlmock.NewRows(recCols)
	recRow(rows, "r-2", 80)
	recRow(rows, "r-1", 70)
	mock.ExpectQuery(`WHERE user_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`).
		WithArgs("u-1", 10).
		WillReturnRows(rows)

	out, err := repo.History(context.Background(), "u-1", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "r-2", out[0].ID)
}

func TestStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectQuery(`COUNT\(DISTINCT user_id\)`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"total", "ok", "users", "avg"}).AddRow(5, 3, 2, 71.23456))

	s, err := repo.Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 5, s.TotalRecommendations)
	assert.Equal(t, 3, s.SuccessfulRecommendations)
	assert.Equal(t, 2, s.TotalUsers)
	require.NotNil(t, s.AverageScore)
	assert.Equal(t, 71.23, *s.AverageScore)
}

func TestStatsEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectQuery(`FROM wash_recommendations`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "ok", "users", "avg"}).AddRow(0, 0, 0, nil))

	s, err := repo.Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, s.AverageScore)
}

func TestExpireForUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecommendationRepository(db)

	mock.ExpectExec(`UPDATE wash_recommendations SET expires_at = \$2`).
		WithArgs("u-1", now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ExpireForUser(context.Background(), "u-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpsertContext(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContextRepository(db)

	city := "Moscow"
	last := calendar.New(2024, 4, 20)
	mock.ExpectQuery(`ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "u-1", "Moscow", nil, last.Time(), 7, now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "city", "country", "last_wash_date", "preferred_wash_interval", "last_sync"}).
			AddRow("u-1", "Moscow", nil, last.Time(), 7, now))

	out, err := repo.Upsert(context.Background(), domain.UserContext{
		UserID: "u-1", City: &city, LastWashDate: &last, PreferredWashInterval: 7, LastSync: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "Moscow", *out.City)
	assert.Nil(t, out.Country)
	assert.Equal(t, "2024-04-20", out.LastWashDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
