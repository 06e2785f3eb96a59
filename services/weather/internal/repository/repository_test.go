package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	locationCols = []string{"id", "city_name", "country", "lat", "lon", "created_at"}
	forecastCols = []string{"date", "temperature_min", "temperature_max", "temperature_avg",
		"precipitation_probability", "precipitation_amount", "weather_code", "weather_description",
		"wind_speed", "humidity"}
	created = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestFindByCityExact(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`WHERE lower\(city_name\) = lower\(\$1\)`).
		WithArgs("moscow").
		WillReturnRows(sqlmock.NewRows(locationCols).AddRow("loc-1", "Moscow", "Russia", 55.75, 37.62, created))

	l, err := repo.FindByCity(context.Background(), "moscow")
	require.NoError(t, err)
	assert.Equal(t, "Moscow", l.CityName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByCityPrefixFallback(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`lower\(city_name\) = lower`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`ILIKE`).
		WithArgs(`Sankt\_%`).
		WillReturnRows(sqlmock.NewRows(locationCols).AddRow("loc-2", "Sankt_Peterburg", "Russia", 59.9, 30.3, created))

	l, err := repo.FindByCity(context.Background(), "Sankt_")
	require.NoError(t, err)
	assert.Equal(t, "loc-2", l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByCityNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`lower\(city_name\) = lower`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`ILIKE`).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCity(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestFindByCityQueryError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`lower\(city_name\)`).WillReturnError(errors.New("conn reset"))

	_, err := repo.FindByCity(context.Background(), "Moscow")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestUpsertLocation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLocationRepository(db)

	mock.ExpectQuery(`INSERT INTO locations`).
		WithArgs("new-id", "Moscow", "Russia", 55.75, 37.62).
		WillReturnRows(sqlmock.NewRows(locationCols).AddRow("old-id", "Moscow", "Russia", 55.75, 37.62, created))

	l, err := repo.Upsert(context.Background(), nil, domain.Location{
		ID: "new-id", CityName: "Moscow", Country: "Russia", Lat: 55.75, Lon: 37.62,
	})
	require.NoError(t, err)
	assert.Equal(t, "old-id", l.ID)
}

func TestCachedForecasts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewForecastRepository(db)

	from := calendar.New(2024, 5, 1)
	fresh := created.Add(-time.Hour)
	mock.ExpectQuery(`FROM weather_forecasts`).
		WithArgs("loc-1", from.Time(), fresh, 2).
		WillReturnRows(sqlmock.NewRows(forecastCols).
			AddRow(from.Time(), 9.1, 18.2, 13.5, 0.87, 0.4, 1183, "Light rain", 14.4, 71).
			AddRow(from.AddDays(1).Time(), nil, nil, nil, nil, nil, nil, nil, nil, nil))

	days, err := repo.Cached(context.Background(), "loc-1", from, fresh, 2)
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "2024-05-01", days[0].Date.String())
	assert.True(t, *days[0].IsRainy)
	assert.Equal(t, 1183, *days[0].WeatherCode)

	assert.Equal(t, "2024-05-02", days[1].Date.String())
	assert.Nil(t, days[1].PrecipitationProbability)
	assert.Nil(t, days[1].IsRainy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMany(t *testing.T) {
	db, mock := newMock(t)
	repo := NewForecastRepository(db)

	p := 0.2
	days := []domain.ForecastDay{
		{Date: calendar.New(2024, 5, 1), PrecipitationProbability: &p, Raw: []byte(`{"a":1}`)},
		{Date: calendar.New(2024, 5, 2)},
	}

	mock.ExpectExec(`INSERT INTO weather_forecasts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`ON CONFLICT \(location_id, date\)`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertMany(context.Background(), nil, "loc-1", days))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertManyStopsOnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewForecastRepository(db)

	mock.ExpectExec(`INSERT INTO weather_forecasts`).WillReturnError(errors.New("check violation"))

	err := repo.UpsertMany(context.Background(), nil, "loc-1", []domain.ForecastDay{
		{Date: calendar.New(2024, 5, 1)},
		{Date: calendar.New(2024, 5, 2)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-05-01")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForecastCleanup(t *testing.T) {
	db, mock := newMock(t)
	repo := NewForecastRepository(db)

	today := calendar.New(2024, 5, 3)
	mock.ExpectExec(`DELETE FROM weather_forecasts WHERE is_cached AND fetched_at < \$1 AND date < \$2`).
		WithArgs(created, today.Time()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.Cleanup(context.Background(), created, today)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestRequestLogInsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestLogRepository(db)

	mock.ExpectExec(`INSERT INTO api_request_logs`).
		WithArgs(sqlmock.AnyArg(), "Moscow", "/api/weather", 200, 42, true, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), domain.RequestLog{
		Location: "Moscow", Endpoint: "/api/weather", ResponseStatus: 200, ResponseTimeMS: 42, WasCached: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestLogRepository(db)

	mock.ExpectQuery(`FILTER \(WHERE was_cached\)`).
		WithArgs(created).
		WillReturnRows(sqlmock.NewRows([]string{"total", "cached", "errors"}).AddRow(10, 4, 1))

	s, err := repo.Stats(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, 10, s.TotalRequests)
	assert.Equal(t, 4, s.CachedRequests)
	assert.Equal(t, 1, s.ErrorRequests)
}
