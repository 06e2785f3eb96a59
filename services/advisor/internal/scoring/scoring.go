// Package scoring rates forecast days for washing a car. Everything here is
// pure: the same inputs always give the same score and reason.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

type Params struct {
	RainThreshold  float64
	IdealTempMin   float64
	IdealTempMax   float64
	WindThreshold  float64
	WeightPrecip   float64
	WeightTemp     float64
	WeightWind     float64
	WeightHumidity float64
	MinAcceptable  float64
}

func DefaultParams() Params {
	return Params{
		RainThreshold:  0.3,
		IdealTempMin:   5,
		IdealTempMax:   25,
		WindThreshold:  30,
		WeightPrecip:   0.4,
		WeightTemp:     0.3,
		WeightWind:     0.2,
		WeightHumidity: 0.1,
		MinAcceptable:  60,
	}
}

const (
	rainPenalty = 40
	tempPenalty = 20
	windPenalty = 20

	intervalBonus        = 10
	recentWashPenalty    = 20
	recentWashWithinDays = 7
)

// Analysis is one scored forecast day.
type Analysis struct {
	Day     domain.ForecastDay
	Score   float64
	Reason  string
	Factors domain.Factors
}

// Recommended reports whether the day clears the acceptance bar.
func (p Params) Recommended(a Analysis) bool { return a.Score >= p.MinAcceptable }

// Analyze scores day, adjusting for how long ago the user last washed.
func (p Params) Analyze(day domain.ForecastDay, m domain.ContextMetrics) Analysis {
	temp, prob, wind := day.TemperatureAvg, day.PrecipitationProbability, day.WindSpeed

	f := domain.Factors{
		IsRainExpected:       prob != nil && *prob > p.RainThreshold,
		IsTemperatureOptimal: temp != nil && *temp >= p.IdealTempMin && *temp <= p.IdealTempMax,
		IsWindAcceptable:     wind != nil && *wind <= p.WindThreshold,
		Humidity:             day.Humidity,
	}

	score := p.base(day, f)
	if m.DaysSinceLastWash != nil {
		switch {
		case m.IsIntervalOptimal != nil && *m.IsIntervalOptimal:
			score = math.Min(100, score+intervalBonus)
		case *m.DaysSinceLastWash < recentWashWithinDays:
			score = math.Max(0, score-recentWashPenalty)
		}
	}

	return Analysis{
		Day:     day,
		Score:   score,
		Reason:  p.reason(day, f, m, score),
		Factors: f,
	}
}

func (p Params) base(day domain.ForecastDay, f domain.Factors) float64 {
	total := PrecipitationScore(day.PrecipitationProbability)*p.WeightPrecip +
		TemperatureScore(day.TemperatureAvg)*p.WeightTemp +
		WindScore(day.WindSpeed)*p.WeightWind +
		HumidityScore(day.Humidity)*p.WeightHumidity

	if f.IsRainExpected {
		total -= rainPenalty
	}
	if !f.IsTemperatureOptimal {
		total -= tempPenalty
	}
	if !f.IsWindAcceptable {
		total -= windPenalty
	}
	return math.Max(0, math.Min(100, total))
}

func PrecipitationScore(prob *float64) float64 {
	if prob == nil {
		return 100
	}
	return 100 * math.Exp(-5*(*prob))
}

func TemperatureScore(temp *float64) float64 {
	if temp == nil {
		return 50
	}
	t := *temp
	switch {
	case t >= 15 && t <= 22:
		return 100
	case (t >= 10 && t < 15) || (t > 22 && t <= 25):
		return 80
	case (t >= 5 && t < 10) || (t > 25 && t <= 30):
		return 60
	case t < 5:
		return math.Max(0, 60-(5-t)*10)
	default:
		return math.Max(0, 60-(t-30)*10)
	}
}

func WindScore(speed *float64) float64 {
	if speed == nil {
		return 100
	}
	switch w := *speed; {
	case w <= 15:
		return 100
	case w <= 25:
		return 80
	case w <= 35:
		return 50
	default:
		return 20
	}
}

func HumidityScore(humidity *int) float64 {
	if humidity == nil {
		return 80
	}
	switch h := *humidity; {
	case h >= 40 && h <= 60:
		return 100
	case (h >= 30 && h < 40) || (h > 60 && h <= 70):
		return 80
	case (h >= 20 && h < 30) || (h > 70 && h <= 80):
		return 60
	default:
		return 40
	}
}

func (p Params) reason(day domain.ForecastDay, f domain.Factors, m domain.ContextMetrics, score float64) string {
	var issues []string

	if f.IsRainExpected {
		issues = append(issues, fmt.Sprintf("Высокая вероятность дождя (%.0f%%)", *day.PrecipitationProbability*100))
	}
	if !f.IsTemperatureOptimal && day.TemperatureAvg != nil {
		switch t := *day.TemperatureAvg; {
		case t < p.IdealTempMin:
			issues = append(issues, fmt.Sprintf("Низкая температура (%.0f°C)", t))
		case t > p.IdealTempMax:
			issues = append(issues, fmt.Sprintf("Высокая температура (%.0f°C)", t))
		}
	}
	if !f.IsWindAcceptable && day.WindSpeed != nil {
		issues = append(issues, fmt.Sprintf("Сильный ветер (%.0f км/ч)", *day.WindSpeed))
	}
	if d := m.DaysSinceLastWash; d != nil {
		switch {
		case m.IsIntervalOptimal != nil && *m.IsIntervalOptimal:
			issues = append(issues, fmt.Sprintf("Оптимальный интервал (%d дней с последней мойки)", *d))
		case *d < recentWashWithinDays:
			issues = append(issues, fmt.Sprintf("Недавняя мойка (%d дней назад)", *d))
		}
	}

	joined := strings.Join(issues, ", ")
	switch {
	case score >= 80:
		if len(issues) == 0 {
			return "Отличные условия для мойки"
		}
		return "Хорошие условия, но " + strings.ToLower(joined)
	case score >= 60:
		if len(issues) == 0 {
			return "Удовлетворительные условия для мойки"
		}
		return "Удовлетворительные условия, однако " + strings.ToLower(joined)
	case score >= 40:
		if len(issues) == 0 {
			return "Неблагоприятные условия"
		}
		return "Неблагоприятные условия: " + joined
	default:
		if len(issues) == 0 {
			return "Очень плохие условия"
		}
		return "Очень плохие условия: " + joined
	}
}

// Best picks the highest scoring day among the acceptable ones, or among all
// days when none is acceptable. Ties go to the earlier date.
func (p Params) Best(days []Analysis) (Analysis, bool) {
	if len(days) == 0 {
		return Analysis{}, false
	}

	pool := make([]Analysis, 0, len(days))
	for _, a := range days {
		if p.Recommended(a) {
			pool = append(pool, a)
		}
	}
	if len(pool) == 0 {
		pool = days
	}

	best := pool[0]
	for _, a := range pool[1:] {
		if a.Score > best.Score || (a.Score == best.Score && a.Day.Date.Before(best.Day.Date)) {
			best = a
		}
	}
	return best, true
}

// Recommendation renders a for API responses.
func (p Params) Recommendation(a Analysis) domain.DayRecommendation {
	return domain.DayRecommendation{
		Date:                     a.Day.Date,
		IsRecommended:            p.Recommended(a),
		Score:                    a.Score,
		Temperature:              a.Day.TemperatureAvg,
		PrecipitationProbability: a.Day.PrecipitationProbability,
		WindSpeed:                a.Day.WindSpeed,
		Reason:                   a.Reason,
		Factors:                  a.Factors,
	}
}

// Metrics derives the wash interval state of c as of today.
func Metrics(c domain.UserContext, today calendar.Date) domain.ContextMetrics {
	if c.LastWashDate == nil || c.LastWashDate.IsZero() {
		return domain.ContextMetrics{}
	}
	days := c.LastWashDate.DaysUntil(today)
	optimal := days >= c.PreferredWashInterval
	return domain.ContextMetrics{DaysSinceLastWash: &days, IsIntervalOptimal: &optimal}
}
