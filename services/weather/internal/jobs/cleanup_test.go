package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockForecasts struct{ mock.Mock }

func (m *MockForecasts) Cleanup(ctx context.Context, before time.Time, today calendar.Date) (int64, error) {
	args := m.Called(ctx, before, today)
	return args.Get(0).(int64), args.Error(1)
}

type MockLogs struct{ mock.Mock }

func (m *MockLogs) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestCleanupRun(t *testing.T) {
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	f, l := new(MockForecasts), new(MockLogs)

	f.On("Cleanup", mock.Anything, now.Add(-time.Hour), calendar.New(2024, 5, 3)).Return(int64(4), nil)
	l.On("DeleteBefore", mock.Anything, now.Add(-168*time.Hour)).Return(int64(30), nil)

	job := NewCleanup(f, l, time.Hour, 168*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	f.AssertExpectations(t)
	l.AssertExpectations(t)
}

func TestCleanupStopsOnForecastError(t *testing.T) {
	f, l := new(MockForecasts), new(MockLogs)
	f.On("Cleanup", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	err := NewCleanup(f, l, time.Hour, time.Hour).Run(context.Background())
	assert.ErrorContains(t, err, "purge forecasts")
	l.AssertNotCalled(t, "DeleteBefore", mock.Anything, mock.Anything)
}
