package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrCityNotSpecified    = errors.New("user city is not specified")
	ErrForecastUnavailable = errors.New("weather forecast not available")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstream            = errors.New("upstream service failure")
)

// ForecastUnavailableError names the location the Weather Service had no
// forecast for. It matches ErrForecastUnavailable with errors.Is.
type ForecastUnavailableError struct {
	Location string
}

func (e *ForecastUnavailableError) Error() string {
	return ErrForecastUnavailable.Error() + " for " + e.Location
}

func (e *ForecastUnavailableError) Unwrap() error { return ErrForecastUnavailable }
