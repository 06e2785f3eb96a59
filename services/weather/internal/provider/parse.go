package provider

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/services/weather/internal/domain"
)

var errInvalidResponse = errors.New("invalid provider response")

// Parse turns a weatherapi.com forecast document into domain values. A body
// without location.name or with an empty forecast.forecastday is rejected.
func Parse(body []byte) (*domain.ProviderForecast, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidResponse
	}

	doc := gjson.ParseBytes(body)
	if !doc.Get("location.name").Exists() {
		return nil, errInvalidResponse
	}
	days := doc.Get("forecast.forecastday").Array()
	if len(days) == 0 {
		return nil, errInvalidResponse
	}

	loc := doc.Get("location")
	out := &domain.ProviderForecast{
		Location: domain.Location{
			CityName: stringOr(loc.Get("name"), "Unknown"),
			Country:  stringOr(loc.Get("country"), "Unknown"),
			Lat:      loc.Get("lat").Float(),
			Lon:      loc.Get("lon").Float(),
		},
	}

	for _, d := range days {
		date, err := calendar.Parse(d.Get("date").String())
		if err != nil {
			continue
		}

		day := d.Get("day")
		prob := chanceOfRain(day.Get("daily_chance_of_rain")) / 100
		amount := 0.0
		if v := day.Get("totalprecip_mm"); v.Exists() && v.Type != gjson.Null {
			amount = v.Float()
		}

		fd := domain.ForecastDay{
			Date:                     date,
			TemperatureMin:           optFloat(day.Get("mintemp_c")),
			TemperatureMax:           optFloat(day.Get("maxtemp_c")),
			TemperatureAvg:           optFloat(day.Get("avgtemp_c")),
			PrecipitationProbability: &prob,
			PrecipitationAmount:      &amount,
			WeatherCode:              optInt(day.Get("condition.code")),
			WeatherDescription:       optString(day.Get("condition.text")),
			WindSpeed:                optFloat(day.Get("maxwind_kph")),
			Humidity:                 optInt(day.Get("avghumidity")),
			Sunrise:                  optString(d.Get("astro.sunrise")),
			Sunset:                   optString(d.Get("astro.sunset")),
			Raw:                      []byte(d.Raw),
		}
		fd.FlagRain()
		out.Days = append(out.Days, fd)
	}

	if len(out.Days) == 0 {
		return nil, errInvalidResponse
	}
	return out, nil
}

// chanceOfRain accepts 87, "87" or "87%" and clamps to 0..100. Anything
// unparseable counts as 0.
func chanceOfRain(v gjson.Result) float64 {
	var pct float64
	switch v.Type {
	case gjson.Number:
		pct = v.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Str), "%")), 64)
		if err != nil {
			return 0
		}
		pct = f
	default:
		return 0
	}

	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func optFloat(v gjson.Result) *float64 {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	f := v.Float()
	return &f
}

func optInt(v gjson.Result) *int {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	i := int(v.Int())
	return &i
}

func optString(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}

func stringOr(v gjson.Result, d string) string {
	if s := v.String(); s != "" {
		return s
	}
	return d
}
