package domain

import (
	"encoding/json"
	"time"

	"github.com/carwash-app/carwash/internal/calendar"
)

const (
	MinDays     = 1
	MaxDays     = 14
	DefaultDays = 7

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50

	DefaultStatsDays = 30
	MaxStatsDays     = 365

	DefaultWashInterval = 7
	ForecastSource      = "weather-service"
)

// User is the part of a User Service profile the advisor reads.
type User struct {
	ID                    string         `json:"id"`
	Username              string         `json:"username"`
	City                  *string        `json:"city"`
	Country               *string        `json:"country"`
	LastWashDate          *calendar.Date `json:"last_wash_date"`
	PreferredWashInterval int            `json:"preferred_wash_interval"`
}

// ForecastDay is one day of a Weather Service forecast.
type ForecastDay struct {
	Date                     calendar.Date `json:"date"`
	TemperatureAvg           *float64      `json:"temperature_avg"`
	PrecipitationProbability *float64      `json:"precipitation_probability"`
	PrecipitationAmount      *float64      `json:"precipitation_amount"`
	WindSpeed                *float64      `json:"wind_speed"`
	Humidity                 *int          `json:"humidity"`
	WeatherDescription       *string       `json:"weather_description"`
}

type Forecast struct {
	Days   []ForecastDay `json:"forecast"`
	Cached bool          `json:"cached"`
	Source string        `json:"source"`
}

// UserContext is the advisor's local copy of the profile fields scoring needs.
type UserContext struct {
	UserID                string
	City                  *string
	Country               *string
	LastWashDate          *calendar.Date
	PreferredWashInterval int
	LastSync              time.Time
}

// ContextMetrics are derived from a UserContext on the analysis day. Both are
// nil when the user has never recorded a wash.
type ContextMetrics struct {
	DaysSinceLastWash *int
	IsIntervalOptimal *bool
}

type Factors struct {
	IsRainExpected       bool `json:"is_rain_expected"`
	IsTemperatureOptimal bool `json:"is_temperature_optimal"`
	IsWindAcceptable     bool `json:"is_wind_acceptable"`
	Humidity             *int `json:"humidity"`
}

type DayRecommendation struct {
	Date                     calendar.Date `json:"date"`
	IsRecommended            bool          `json:"is_recommended"`
	Score                    float64       `json:"score"`
	Temperature              *float64      `json:"temperature"`
	PrecipitationProbability *float64      `json:"precipitation_probability"`
	WindSpeed                *float64      `json:"wind_speed"`
	Reason                   string        `json:"reason"`
	Factors                  Factors       `json:"factors"`
}

// Recommendation is a persisted best day.
type Recommendation struct {
	ID                       string          `json:"id"`
	UserID                   string          `json:"user_id"`
	Location                 string          `json:"location"`
	RecommendationDate       calendar.Date   `json:"recommendation_date"`
	Temperature              *float64        `json:"temperature"`
	PrecipitationProbability *float64        `json:"precipitation_probability"`
	PrecipitationAmount      *float64        `json:"precipitation_amount"`
	WindSpeed                *float64        `json:"wind_speed"`
	Humidity                 *int            `json:"humidity"`
	WeatherDescription       *string         `json:"weather_description"`
	Score                    float64         `json:"score"`
	IsRecommended            bool            `json:"is_recommended"`
	Reason                   string          `json:"reason"`
	IsRainExpected           bool            `json:"is_rain_expected"`
	IsTemperatureOptimal     bool            `json:"is_temperature_optimal"`
	IsWindAcceptable         bool            `json:"is_wind_acceptable"`
	DaysSinceLastWash        *int            `json:"days_since_last_wash"`
	IsIntervalOptimal        *bool           `json:"is_interval_optimal"`
	ForecastSource           string          `json:"forecast_source"`
	RawForecast              json.RawMessage `json:"-"`
	CreatedAt                time.Time       `json:"created_at"`
	ExpiresAt                time.Time       `json:"expires_at"`
}

// Day renders a stored row the way a freshly scored day is returned.
func (r *Recommendation) Day() DayRecommendation {
	return DayRecommendation{
		Date:                     r.RecommendationDate,
		IsRecommended:            r.IsRecommended,
		Score:                    r.Score,
		Temperature:              r.Temperature,
		PrecipitationProbability: r.PrecipitationProbability,
		WindSpeed:                r.WindSpeed,
		Reason:                   r.Reason,
		Factors: Factors{
			IsRainExpected:       r.IsRainExpected,
			IsTemperatureOptimal: r.IsTemperatureOptimal,
			IsWindAcceptable:     r.IsWindAcceptable,
			Humidity:             r.Humidity,
		},
	}
}

type RecommendRequest struct {
	UserID       string
	Days         int
	ForceRefresh bool
}

type RecommendResponse struct {
	UserID            string              `json:"user_id"`
	Location          string              `json:"location"`
	AnalysisDate      time.Time           `json:"analysis_date"`
	DaysSinceLastWash *int                `json:"days_since_last_wash"`
	IsIntervalOptimal *bool               `json:"is_interval_optimal"`
	BestDay           *DayRecommendation  `json:"best_day"`
	AllDays           []DayRecommendation `json:"all_days"`
	Cached            bool                `json:"cached"`
}

type ServiceStats struct {
	TotalRecommendations      int       `json:"total_recommendations"`
	SuccessfulRecommendations int       `json:"successful_recommendations"`
	TotalUsers                int       `json:"total_users"`
	AverageScore              *float64  `json:"average_recommendation_score"`
	CacheHitRate              *float64  `json:"cache_hit_rate"`
	Timestamp                 time.Time `json:"timestamp"`
}
