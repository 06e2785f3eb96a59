package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrCityNotFound        = errors.New("city not found")
	ErrLocationNotFound    = errors.New("location not found")
	ErrProviderAuth        = errors.New("weather provider rejected credentials")
	ErrProviderUnavailable = errors.New("weather provider unavailable")
)
