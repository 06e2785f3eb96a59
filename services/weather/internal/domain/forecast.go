package domain

import (
	"encoding/json"
	"time"

	"github.com/carwash-app/carwash/internal/calendar"
)

const (
	MinDays     = 1
	MaxDays     = 14
	DefaultDays = 10

	// RainyThreshold is the precipitation probability above which a day is flagged rainy.
	RainyThreshold = 0.6

	SourceProvider = "weatherapi.com"
	SourceCache    = "cache"
)

type Location struct {
	ID        string    `json:"id"`
	CityName  string    `json:"city_name"`
	Country   string    `json:"country"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	CreatedAt time.Time `json:"created_at"`
}

type ForecastDay struct {
	Date                     calendar.Date   `json:"date"`
	TemperatureMin           *float64        `json:"temperature_min"`
	TemperatureMax           *float64        `json:"temperature_max"`
	TemperatureAvg           *float64        `json:"temperature_avg"`
	PrecipitationProbability *float64        `json:"precipitation_probability"`
	PrecipitationAmount      *float64        `json:"precipitation_amount"`
	WeatherCode              *int            `json:"weather_code"`
	WeatherDescription       *string         `json:"weather_description"`
	WindSpeed                *float64        `json:"wind_speed"`
	Humidity                 *int            `json:"humidity"`
	IsRainy                  *bool           `json:"is_rainy"`
	Sunrise                  *string         `json:"-"`
	Sunset                   *string         `json:"-"`
	Raw                      json.RawMessage `json:"-"`
}

// FlagRain sets IsRainy from the precipitation probability, leaving it nil when unknown.
func (d *ForecastDay) FlagRain() {
	if d.PrecipitationProbability == nil {
		d.IsRainy = nil
		return
	}
	rainy := *d.PrecipitationProbability > RainyThreshold
	d.IsRainy = &rainy
}

// ProviderForecast is a parsed provider answer before it is stored.
type ProviderForecast struct {
	Location Location
	Days     []ForecastDay
}

type ForecastResponse struct {
	Location    Location      `json:"location"`
	Forecast    []ForecastDay `json:"forecast"`
	Cached      bool          `json:"cached"`
	RequestedAt time.Time     `json:"requested_at"`
	Source      string        `json:"source"`
}

type RequestLog struct {
	Location       string
	Endpoint       string
	ResponseStatus int
	ResponseTimeMS int
	WasCached      bool
	ErrorMessage   *string
}

type RequestStats struct {
	TotalRequests   int     `json:"total_requests"`
	CachedRequests  int     `json:"cached_requests"`
	ErrorRequests   int     `json:"error_requests"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	TimePeriodHours int     `json:"time_period_hours"`
}
