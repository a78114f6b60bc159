package analytics

import (
	"context"
	"fmt"
	"sort"
)

type KPIKind string

const (
	KPIFinancial   KPIKind = "financial"
	KPIHR          KPIKind = "hr"
	KPIOperational KPIKind = "operational"
)

type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingAverage   Rating = "average"
	RatingPoor      Rating = "poor"
	RatingCritical  Rating = "critical"
	RatingUnrated   Rating = "unrated"
)

// Benchmark holds the lower bound of each band. Higher values are better.
type Benchmark struct {
	Excellent float64 `json:"excellent"`
	Good      float64 `json:"good"`
	Average   float64 `json:"average"`
	Poor      float64 `json:"poor"`
}

// Rate places v in a band. Anything below Poor is critical.
func (b Benchmark) Rate(v float64) Rating {
	switch {
	case v >= b.Excellent:
		return RatingExcellent
	case v >= b.Good:
		return RatingGood
	case v >= b.Average:
		return RatingAverage
	case v >= b.Poor:
		return RatingPoor
	}
	return RatingCritical
}

// Industry reference bands per KPI key.
var benchmarks = map[string]Benchmark{
	"profit_margin":        {Excellent: 25, Good: 15, Average: 10, Poor: 5},
	"revenue_growth":       {Excellent: 20, Good: 10, Average: 5, Poor: 0},
	"revenue_per_employee": {Excellent: 200000, Good: 150000, Average: 100000, Poor: 50000},
	"performance_score":    {Excellent: 90, Good: 80, Average: 70, Poor: 60},
	"assessment_coverage":  {Excellent: 90, Good: 75, Average: 60, Poor: 40},
}

var kpiLabels = map[string]string{
	"profit_margin":          "Margine di profitto",
	"revenue_growth":         "Crescita dei ricavi",
	"revenue_per_employee":   "Ricavi per dipendente",
	"performance_score":      "Punteggio medio di performance",
	"assessment_coverage":    "Copertura delle valutazioni",
	"expense_ratio":          "Incidenza delle spese",
	"profit_per_employee":    "Utile per dipendente",
	"average_monthly_profit": "Utile medio mensile",
	"revenue":                "Ricavi mensili",
	"expenses":               "Spese mensili",
	"headcount":              "Organico",
}

var kpiAdvice = map[string]string{
	"profit_margin":        "Rivedi prezzi e costi diretti per riportare il margine sopra il 10%",
	"revenue_growth":       "Rafforza le attività commerciali sui clienti esistenti",
	"revenue_per_employee": "Valuta l'allocazione del personale sulle attività a maggior valore",
	"performance_score":    "Pianifica percorsi di formazione mirati",
	"assessment_coverage":  "Estendi le valutazioni a tutto il personale",
	"expense_ratio":        "Analizza le categorie di spesa con la crescita maggiore",
	"revenue":              "Verifica le cause del calo dei ricavi mese su mese",
}

const defaultKPIAdvice = "Continua a monitorare i KPI ogni mese"

// lowerIsBetter lists series whose rise is a warning.
var lowerIsBetter = map[string]bool{"expense_ratio": true, "expenses": true}

type KPIScore struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
	Benchmark *Benchmark `json:"benchmark,omitempty"`
	Rating    Rating     `json:"rating"`
}

type KPIPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

type KPIAnalysis struct {
	Type            KPIKind               `json:"kpi_type"`
	Period          Period                `json:"period"`
	Current         []KPIScore            `json:"current"`
	Historical      map[string][]KPIPoint `json:"historical"`
	Trends          map[string]Estimate   `json:"trends"`
	Insights        []Insight             `json:"insights"`
	Recommendations []string              `json:"recommendations"`
}

func rateKPI(key string, value float64, unit string) KPIScore {
	s := KPIScore{Key: key, Label: kpiLabels[key], Value: round2(value), Unit: unit, Rating: RatingUnrated}
	if b, ok := benchmarks[key]; ok {
		s.Benchmark = &b
		s.Rating = b.Rate(s.Value)
	}
	return s
}

func toKPIPoints(series []Point) []KPIPoint {
	out := make([]KPIPoint, 0, len(series))
	for _, p := range series {
		out = append(out, KPIPoint{Month: p.Month.Format("2006-01"), Value: round2(p.Value)})
	}
	return out
}

// ratioSeries maps every month to num/den as a percentage.
func ratioSeries(monthly []MonthTotal, num Metric) []Point {
	out := make([]Point, 0, len(monthly))
	for _, m := range monthly {
		out = append(out, Point{Month: m.Month, Value: round2(ratio(num(m), m.Revenue) * 100)})
	}
	return out
}

// KPIAnalysis rates the current KPIs of one family against the reference
// bands and follows their monthly history over the window.
func (c *Composer) KPIAnalysis(ctx context.Context, companyID uint, kind KPIKind, opts Options) (KPIAnalysis, error) {
	opts, err := opts.normalize()
	if err != nil {
		return KPIAnalysis{}, err
	}
	switch kind {
	case KPIFinancial, KPIHR, KPIOperational:
	default:
		return KPIAnalysis{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown kpi type %q", kind)}
	}

	w, err := TrailingWindow(c.now(), opts.WindowMonths)
	if err != nil {
		return KPIAnalysis{}, err
	}
	employees, assessments, err := c.people(ctx, companyID)
	if err != nil {
		return KPIAnalysis{}, err
	}
	headcount := float64(len(employees))

	var current []KPIScore
	history := make(map[string][]Point)

	if kind == KPIHR {
		hr := SummarizeHR(employees, assessments)
		current = []KPIScore{
			rateKPI("performance_score", hr.AvgPerformanceScore, "score"),
			rateKPI("assessment_coverage", hr.AssessmentCoverage, "percent"),
		}
		history["performance_score"] = PerformanceSeries(assessments, w)
		history["headcount"] = HeadcountSeries(employees, w)
	} else {
		_, fin, err := c.financial(ctx, companyID, opts)
		if err != nil {
			return KPIAnalysis{}, err
		}
		s := fin.summary
		if kind == KPIFinancial {
			current = []KPIScore{
				rateKPI("profit_margin", s.ProfitMargin, "percent"),
				rateKPI("revenue_growth", s.RevenueGrowth, "percent"),
				rateKPI("revenue_per_employee", ratio(s.TotalRevenue, headcount), "currency"),
			}
			history["revenue"] = Series(fin.monthly, RevenueMetric)
			history["profit_margin"] = ratioSeries(fin.monthly, ProfitMetric)
		} else {
			var monthlyProfit float64
			for _, m := range fin.monthly {
				monthlyProfit += m.Profit
			}
			current = []KPIScore{
				rateKPI("expense_ratio", ratio(s.TotalExpenses, s.TotalRevenue)*100, "percent"),
				rateKPI("profit_per_employee", ratio(s.NetProfit, headcount), "currency"),
				rateKPI("average_monthly_profit", ratio(monthlyProfit, float64(len(fin.monthly))), "currency"),
			}
			history["expense_ratio"] = ratioSeries(fin.monthly, ExpensesMetric)
			history["expenses"] = Series(fin.monthly, ExpensesMetric)
		}
	}

	out := KPIAnalysis{
		Type:       kind,
		Period:     w.Period(),
		Current:    current,
		Historical: make(map[string][]KPIPoint, len(history)),
		Trends:     make(map[string]Estimate, len(history)),
	}
	for key, series := range history {
		out.Historical[key] = toKPIPoints(series)
		out.Trends[key] = EstimateTrend(series)
	}
	out.Insights, out.Recommendations = kpiInsights(out.Current, out.Trends)
	return out, nil
}

// kpiInsights turns ratings and adverse trends into insights and a
// deduplicated list of recommendations.
func kpiInsights(current []KPIScore, trends map[string]Estimate) ([]Insight, []string) {
	insights := make([]Insight, 0)
	var recs []string
	seen := make(map[string]bool)
	advise := func(key string) string {
		r, ok := kpiAdvice[key]
		if !ok {
			return ""
		}
		if !seen[r] {
			seen[r] = true
			recs = append(recs, r)
		}
		return r
	}

	for _, k := range current {
		switch k.Rating {
		case RatingExcellent:
			insights = append(insights, Insight{
				Rule:     "kpi_excellent",
				Type:     SeverityPositive,
				Category: "kpi",
				Title:    k.Label,
				Message:  fmt.Sprintf("%s eccellente (%.2f), sopra la soglia di %.0f", k.Label, k.Value, k.Benchmark.Excellent),
			})
		case RatingPoor, RatingCritical:
			insights = append(insights, Insight{
				Rule:           "kpi_below_benchmark",
				Type:           SeverityWarning,
				Category:       "kpi",
				Title:          k.Label,
				Message:        fmt.Sprintf("%s sotto la media di settore (%.2f contro %.0f)", k.Label, k.Value, k.Benchmark.Average),
				Recommendation: advise(k.Key),
			})
		}
	}

	keys := make([]string, 0, len(trends))
	for key := range trends {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		adverse := DirectionDown
		if lowerIsBetter[key] {
			adverse = DirectionUp
		}
		if trends[key].Direction != adverse {
			continue
		}
		insights = append(insights, Insight{
			Rule:           "kpi_adverse_trend",
			Type:           SeverityWarning,
			Category:       "trend",
			Title:          kpiLabels[key],
			Message:        fmt.Sprintf("%s in peggioramento (%.1f%%)", kpiLabels[key], trends[key].ChangePercent),
			Recommendation: advise(key),
		})
	}

	if len(recs) == 0 {
		recs = []string{defaultKPIAdvice}
	}
	return insights, recs
}
