package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carwash-app/carwash/internal/calendar"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
func b(v bool) *bool       { return &v }

func day(date calendar.Date, temp, prob, wind *float64, humidity *int) domain.ForecastDay {
	return domain.ForecastDay{
		Date:                     date,
		TemperatureAvg:           temp,
		PrecipitationProbability: prob,
		WindSpeed:                wind,
		Humidity:                 humidity,
	}
}

var d0 = calendar.New(2024, 5, 1)

func TestAnalyze(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name    string
		day     domain.ForecastDay
		ctx     domain.ContextMetrics
		score   float64
		reason  string
		factors domain.Factors
	}{
		{
			name:    "ideal",
			day:     day(d0, f(18), f(0), f(10), i(50)),
			score:   100,
			reason:  "Отличные условия для мойки",
			factors: domain.Factors{IsTemperatureOptimal: true, IsWindAcceptable: true, Humidity: i(50)},
		},
		{
			name:    "rain",
			day:     day(d0, f(18), f(0.8), f(10), i(50)),
			score:   40*math.Exp(-4) + 60 - 40,
			reason:  "Очень плохие условия: Высокая вероятность дождя (80%)",
			factors: domain.Factors{IsRainExpected: true, IsTemperatureOptimal: true, IsWindAcceptable: true, Humidity: i(50)},
		},
		{
			name:   "nothing known",
			day:    day(d0, nil, nil, nil, nil),
			score:  43,
			reason: "Неблагоприятные условия",
		},
		{
			name:    "cold",
			day:     day(d0, f(0), f(0.1), f(20), i(85)),
			score:   40*math.Exp(-0.5) + 3 + 16 + 4 - 20,
			reason:  "Очень плохие условия: Низкая температура (0°C)",
			factors: domain.Factors{IsWindAcceptable: true, Humidity: i(85)},
		},
		{
			name:    "windy",
			day:     day(d0, f(18), f(0), f(40), i(50)),
			score:   64,
			reason:  "Удовлетворительные условия, однако сильный ветер (40 км/ч)",
			factors: domain.Factors{IsTemperatureOptimal: true, Humidity: i(50)},
		},
		{
			name:    "interval bonus is capped",
			day:     day(d0, f(18), f(0), f(10), i(50)),
			ctx:     domain.ContextMetrics{DaysSinceLastWash: i(10), IsIntervalOptimal: b(true)},
			score:   100,
			reason:  "Хорошие условия, но оптимальный интервал (10 дней с последней мойки)",
			factors: domain.Factors{IsTemperatureOptimal: true, IsWindAcceptable: true, Humidity: i(50)},
		},
		{
			name:    "recent wash",
			day:     day(d0, f(18), f(0), f(10), i(50)),
			ctx:     domain.ContextMetrics{DaysSinceLastWash: i(2), IsIntervalOptimal: b(false)},
			score:   80,
			reason:  "Хорошие условия, но недавняя мойка (2 дней назад)",
			factors: domain.Factors{IsTemperatureOptimal: true, IsWindAcceptable: true, Humidity: i(50)},
		},
		{
			name:    "not optimal but not recent",
			day:     day(d0, f(18), f(0), f(10), i(50)),
			ctx:     domain.ContextMetrics{DaysSinceLastWash: i(8), IsIntervalOptimal: b(false)},
			score:   100,
			reason:  "Отличные условия для мойки",
			factors: domain.Factors{IsTemperatureOptimal: true, IsWindAcceptable: true, Humidity: i(50)},
		},
		{
			name:    "hot and humid",
			day:     day(d0, f(33), f(0), f(10), i(90)),
			score:   40 + 9 + 20 + 4 - 20,
			reason:  "Неблагоприятные условия: Высокая температура (33°C)",
			factors: domain.Factors{IsWindAcceptable: true, Humidity: i(90)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := p.Analyze(tt.day, tt.ctx)
			assert.InDelta(t, tt.score, a.Score, 1e-9)
			assert.Equal(t, tt.reason, a.Reason)
			assert.Equal(t, tt.factors, a.Factors)
		})
	}
}

func TestTemperatureScore(t *testing.T) {
	tests := []struct {
		temp *float64
		want float64
	}{
		{nil, 50},
		{f(15), 100},
		{f(22), 100},
		{f(10), 80},
		{f(25), 80},
		{f(5), 60},
		{f(30), 60},
		{f(3), 40},
		{f(-10), 0},
		{f(32), 40},
		{f(40), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TemperatureScore(tt.temp))
	}
}

func TestWindAndHumidityScores(t *testing.T) {
	assert.Equal(t, 100.0, WindScore(nil))
	assert.Equal(t, 100.0, WindScore(f(15)))
	assert.Equal(t, 80.0, WindScore(f(25)))
	assert.Equal(t, 50.0, WindScore(f(35)))
	assert.Equal(t, 20.0, WindScore(f(35.1)))

	assert.Equal(t, 80.0, HumidityScore(nil))
	assert.Equal(t, 100.0, HumidityScore(i(40)))
	assert.Equal(t, 80.0, HumidityScore(i(70)))
	assert.Equal(t, 60.0, HumidityScore(i(20)))
	assert.Equal(t, 40.0, HumidityScore(i(81)))

	assert.Equal(t, 100.0, PrecipitationScore(nil))
	assert.InDelta(t, 100*math.Exp(-2.5), PrecipitationScore(f(0.5)), 1e-9)
}

func TestScoreStaysInRange(t *testing.T) {
	p := DefaultParams()
	for _, prob := range []float64{0, 0.3, 0.31, 1} {
		for _, temp := range []float64{-30, 0, 18, 45} {
			a := p.Analyze(day(d0, f(temp), f(prob), f(80), i(5)), domain.ContextMetrics{DaysSinceLastWash: i(1), IsIntervalOptimal: b(false)})
			assert.GreaterOrEqual(t, a.Score, 0.0)
			assert.LessOrEqual(t, a.Score, 100.0)
		}
	}
}

func TestBest(t *testing.T) {
	p := DefaultParams()

	t.Run("empty", func(t *testing.T) {
		_, ok := p.Best(nil)
		assert.False(t, ok)
	})

	t.Run("highest acceptable with earliest tie", func(t *testing.T) {
		days := []Analysis{
			{Day: domain.ForecastDay{Date: d0.AddDays(2)}, Score: 90},
			{Day: domain.ForecastDay{Date: d0}, Score: 55},
			{Day: domain.ForecastDay{Date: d0.AddDays(1)}, Score: 90},
		}
		best, ok := p.Best(days)
		require.True(t, ok)
		assert.Equal(t, d0.AddDays(1), best.Day.Date)
		assert.True(t, p.Recommended(best))
	})

	t.Run("nothing acceptable", func(t *testing.T) {
		days := []Analysis{
			{Day: domain.ForecastDay{Date: d0}, Score: 20},
			{Day: domain.ForecastDay{Date: d0.AddDays(1)}, Score: 45},
		}
		best, ok := p.Best(days)
		require.True(t, ok)
		assert.Equal(t, 45.0, best.Score)
		assert.False(t, p.Recommendation(best).IsRecommended)
	})
}

func TestMetrics(t *testing.T) {
	today := calendar.New(2024, 5, 10)

	m := Metrics(domain.UserContext{PreferredWashInterval: 7}, today)
	assert.Nil(t, m.DaysSinceLastWash)
	assert.Nil(t, m.IsIntervalOptimal)

	last := calendar.New(2024, 5, 3)
	m = Metrics(domain.UserContext{LastWashDate: &last, PreferredWashInterval: 7}, today)
	require.NotNil(t, m.DaysSinceLastWash)
	assert.Equal(t, 7, *m.DaysSinceLastWash)
	assert.True(t, *m.IsIntervalOptimal)

	m = Metrics(domain.UserContext{LastWashDate: &last, PreferredWashInterval: 10}, today)
	assert.False(t, *m.IsIntervalOptimal)
}
