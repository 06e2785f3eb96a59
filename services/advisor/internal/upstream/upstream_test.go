package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carwash-app/carwash/internal/httpclient"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

func serve(t *testing.T, h http.HandlerFunc) *httpclient.Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return httpclient.New(srv.URL, time.Second)
}

func TestUser(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u-1", r.URL.Path)
		w.Write([]byte(`{"id":"u-1","username":"alice","city":"Moscow","last_wash_date":"2024-04-28","preferred_wash_interval":7}`))
	})

	u, err := NewUserClient(c).User(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, u.City)
	assert.Equal(t, "Moscow", *u.City)
	assert.Equal(t, "2024-04-28", u.LastWashDate.String())
}

func TestUserNotFound(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	})

	_, err := NewUserClient(c).User(context.Background(), "u-1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserServerError(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := NewUserClient(c).User(context.Background(), "u-1")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestForecast(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Moscow", r.URL.Query().Get("city"))
		assert.Equal(t, "3", r.URL.Query().Get("days"))
		w.Write([]byte(`{"forecast":[{"date":"2024-05-01","temperature_avg":17.5,"precipitation_probability":0.1,"humidity":55}],"cached":false,"source":"weatherapi.com"}`))
	})

	fc, err := NewWeatherClient(c).Forecast(context.Background(), "Moscow", 3)
	require.NoError(t, err)
	require.Len(t, fc.Days, 1)
	assert.Equal(t, 17.5, *fc.Days[0].TemperatureAvg)
	assert.Nil(t, fc.Days[0].WindSpeed)
}

func TestForecastUnavailable(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusServiceUnavailable} {
		c := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := NewWeatherClient(c).Forecast(context.Background(), "Atlantis", 3)
		assert.ErrorIs(t, err, domain.ErrForecastUnavailable)
		var fe *domain.ForecastUnavailableError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "Atlantis", fe.Location)
	}
}

func TestForecastEmpty(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"forecast":[]}`))
	})
	_, err := NewWeatherClient(c).Forecast(context.Background(), "Moscow", 3)
	assert.ErrorIs(t, err, domain.ErrForecastUnavailable)
}

func TestProbe(t *testing.T) {
	up := serve(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	down := serve(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })

	st := Probe(context.Background(), up, down, time.Second)
	assert.Equal(t, "healthy", st.UserService)
	assert.Equal(t, "unhealthy", st.WeatherService)
}
