package analytics

import (
	"errors"
	"math"
	"time"
)

type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

const (
	// TrendThreshold is the relative change between half means needed to
	// classify a series as up or down.
	TrendThreshold = 0.05

	// MinForecastPoints is the shortest history a forecast is built from.
	MinForecastPoints = 3

	// SeasonalMinPoints is the history needed before month-of-year
	// seasonality is applied.
	SeasonalMinPoints = 12

	minConfidence = 0.3

	MessageInsufficientData = "insufficient data"
)

// Point is one month of a series.
type Point struct {
	Month time.Time
	Value float64
}

// Estimate classifies a series and carries it for projection.
type Estimate struct {
	Direction     Direction `json:"direction"`
	Strength      float64   `json:"strength"`
	ChangePercent float64   `json:"change_percent"`
	Volatility    float64   `json:"volatility"`
	DataPoints    int       `json:"data_points"`

	series []Point
}

// EstimateTrend compares the mean of the first half of the series against
// the mean of the second half, split by index.
func EstimateTrend(series []Point) Estimate {
	e := Estimate{
		Direction:  DirectionStable,
		DataPoints: len(series),
		series:     append([]Point(nil), series...),
	}
	if len(series) < 2 {
		return e
	}

	mid := len(series) / 2
	first := mean(series[:mid])
	second := mean(series[mid:])

	// profit series may have a negative baseline
	change := ratio(second-first, math.Abs(first))

	switch {
	case change > TrendThreshold:
		e.Direction = DirectionUp
	case change < -TrendThreshold:
		e.Direction = DirectionDown
	}
	e.Strength = round2(math.Abs(change))
	e.ChangePercent = round2(change * 100)
	e.Volatility = round2(volatility(series))
	return e
}

func (e Estimate) Factor() float64 {
	switch e.Direction {
	case DirectionUp:
		return 1.02
	case DirectionDown:
		return 0.98
	}
	return 1.0
}

type ForecastPoint struct {
	Month      string  `json:"month"`
	Period     int     `json:"period"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

type Forecast struct {
	Points  []ForecastPoint `json:"forecast"`
	Message string          `json:"message,omitempty"`
}

func (f Forecast) Empty() bool {
	return len(f.Points) == 0
}

// Forecast projects the series periods months ahead. A history shorter than
// MinForecastPoints yields an empty forecast carrying a message.
func (e Estimate) Forecast(periods int) (Forecast, error) {
	if periods < 1 {
		return Forecast{}, &ValidationError{Field: "forecast_months", Reason: "must be >= 1"}
	}

	points, err := e.project(periods)
	if errors.Is(err, ErrInsufficientData) {
		return Forecast{Points: []ForecastPoint{}, Message: MessageInsufficientData}, nil
	}
	if err != nil {
		return Forecast{}, err
	}
	return Forecast{Points: points}, nil
}

func (e Estimate) project(periods int) ([]ForecastPoint, error) {
	n := len(e.series)
	if n < MinForecastPoints {
		return nil, &InsufficientDataError{Have: n, Need: MinForecastPoints}
	}

	last := e.series[n-1]
	seasonal := seasonality(e.series)
	factor := e.Factor()

	out := make([]ForecastPoint, 0, periods)
	for i := 1; i <= periods; i++ {
		month := last.Month.AddDate(0, i, 0)
		value := last.Value * math.Pow(factor, float64(i))
		if s, ok := seasonal[month.Month()]; ok {
			value *= s
		}
		out = append(out, ForecastPoint{
			Month:      month.Format("2006-01"),
			Period:     i,
			Value:      round2(math.Max(0, value)),
			Confidence: Confidence(i),
		})
	}
	return out, nil
}

// Confidence decays by 0.1 per period from 0.9 and never drops below 0.3.
func Confidence(period int) float64 {
	return round2(math.Max(minConfidence, 0.9-0.1*float64(period)))
}

// seasonality returns month-of-year average / overall average, only when the
// series is long enough.
func seasonality(series []Point) map[time.Month]float64 {
	if len(series) < SeasonalMinPoints {
		return nil
	}
	overall := mean(series)
	if overall <= 0 {
		return nil
	}

	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	for _, p := range series {
		sums[p.Month.Month()] += p.Value
		counts[p.Month.Month()]++
	}

	out := make(map[time.Month]float64, len(sums))
	for m, s := range sums {
		out[m] = (s / float64(counts[m])) / overall
	}
	return out
}

func mean(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

// volatility is the coefficient of variation of the series.
func volatility(points []Point) float64 {
	m := mean(points)
	if m == 0 {
		return 0
	}
	var sq float64
	for _, p := range points {
		d := p.Value - m
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(points))) / math.Abs(m)
}
