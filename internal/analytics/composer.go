package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Source is the read side of the record store. Implementations return rows
// already scoped to companyID.
type Source interface {
	FinancialRecords(ctx context.Context, companyID uint, from, to time.Time) ([]Record, error)
	Transactions(ctx context.Context, companyID uint, from, to time.Time) ([]Record, error)
	Employees(ctx context.Context, companyID uint) ([]Employee, error)
	Assessments(ctx context.Context, companyID uint) ([]AssessmentResult, error)
}

type SeriesKind string

const (
	SeriesFinancialRecords SeriesKind = "financial_records"
	SeriesTransactions     SeriesKind = "transactions"
)

type Options struct {
	WindowMonths   int
	ForecastMonths int
	Series         SeriesKind
}

func DefaultOptions() Options {
	return Options{WindowMonths: 12, ForecastMonths: 6, Series: SeriesFinancialRecords}
}

func (o Options) normalize() (Options, error) {
	if o.WindowMonths < 1 {
		return o, &ValidationError{Field: "window_months", Reason: "must be >= 1"}
	}
	if o.ForecastMonths < 1 {
		return o, &ValidationError{Field: "forecast_months", Reason: "must be >= 1"}
	}
	switch o.Series {
	case "":
		o.Series = SeriesFinancialRecords
	case SeriesFinancialRecords, SeriesTransactions:
	default:
		return o, &ValidationError{Field: "series", Reason: fmt.Sprintf("unknown series %q", o.Series)}
	}
	return o, nil
}

// Composer builds dashboards. It only reads from its Source.
type Composer struct {
	source Source
	now    func() time.Time
}

type ComposerOption func(*Composer)

func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) { c.now = now }
}

func NewComposer(source Source, opts ...ComposerOption) *Composer {
	c := &Composer{source: source, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(c)
	}
	return c
}

type FinancialTrends struct {
	Revenue  Estimate `json:"revenue"`
	Expenses Estimate `json:"expenses"`
	Profit   Estimate `json:"profit"`
}

type CashFlowPoint struct {
	Month             string  `json:"month"`
	Period            int     `json:"period"`
	PredictedRevenue  float64 `json:"predicted_revenue"`
	PredictedExpenses float64 `json:"predicted_expenses"`
	PredictedProfit   float64 `json:"predicted_profit"`
	Confidence        float64 `json:"confidence"`
}

type CashFlowForecast struct {
	Points  []CashFlowPoint `json:"forecast"`
	Message string          `json:"message,omitempty"`
}

type KPI struct {
	Key      string  `json:"key"`
	Value    float64 `json:"value"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"` // percent
	Unit     string  `json:"unit"`
}

type FinancialDashboard struct {
	Period     Period           `json:"period"`
	Series     SeriesKind       `json:"series"`
	Summary    Summary          `json:"summary"`
	Trends     FinancialTrends  `json:"trends"`
	Forecast   CashFlowForecast `json:"forecast"`
	KPIs       []KPI            `json:"kpis"`
	Alerts     []Alert          `json:"alerts"`
	Insights   []Insight        `json:"insights"`
	Monthly    []MonthTotal     `json:"monthly"`
	Categories []Group          `json:"categories"`
}

// FinancialDashboard aggregates the chosen series over the trailing window
// and projects revenue and expenses forward.
func (c *Composer) FinancialDashboard(ctx context.Context, companyID uint, opts Options) (FinancialDashboard, error) {
	opts, err := opts.normalize()
	if err != nil {
		return FinancialDashboard{}, err
	}

	w, fin, err := c.financial(ctx, companyID, opts)
	if err != nil {
		return FinancialDashboard{}, err
	}

	forecast, err := cashFlowForecast(fin.trends, opts.ForecastMonths)
	if err != nil {
		return FinancialDashboard{}, err
	}

	f := facts{
		financial:    &fin.summary,
		revenueTrend: fin.trends.Revenue.Direction,
		expenseTrend: fin.trends.Expenses.Direction,
	}

	inWindow := make([]Record, 0, len(fin.records))
	for _, r := range fin.records {
		if w.Contains(r.Date) {
			inWindow = append(inWindow, r)
		}
	}

	return FinancialDashboard{
		Period:   w.Period(),
		Series:   opts.Series,
		Summary:  fin.summary,
		Trends:   fin.trends,
		Forecast: forecast,
		KPIs:     monthlyKPIs(fin.monthly, fin.summary),
		Alerts:   evaluateAlerts(f),
		Insights: evaluateInsights(f),
		Monthly:  fin.monthly,
		Categories: GroupBy(inWindow,
			func(r Record) string { return r.Category },
			func(r Record) float64 { return r.Revenue - r.Expenses }),
	}, nil
}

// Forecast returns only the cash flow projection.
func (c *Composer) Forecast(ctx context.Context, companyID uint, opts Options) (CashFlowForecast, error) {
	opts, err := opts.normalize()
	if err != nil {
		return CashFlowForecast{}, err
	}
	_, fin, err := c.financial(ctx, companyID, opts)
	if err != nil {
		return CashFlowForecast{}, err
	}
	return cashFlowForecast(fin.trends, opts.ForecastMonths)
}

type HRTrends struct {
	Performance Estimate `json:"performance"`
	Headcount   Estimate `json:"headcount"`
}

type HRDashboard struct {
	Period        Period      `json:"period"`
	Summary       HRSummary   `json:"summary"`
	Trends        HRTrends    `json:"trends"`
	Forecast      Forecast    `json:"forecast"`
	KPIs          []KPI       `json:"kpis"`
	Alerts        []Alert     `json:"alerts"`
	Insights      []Insight   `json:"insights"`
	Departments   []Group     `json:"departments"`
	TestTypes     []Group     `json:"test_types"`
	TopPerformers []Performer `json:"top_performers"`
}

func (c *Composer) HRDashboard(ctx context.Context, companyID uint, opts Options) (HRDashboard, error) {
	opts, err := opts.normalize()
	if err != nil {
		return HRDashboard{}, err
	}
	w, err := TrailingWindow(c.now(), opts.WindowMonths)
	if err != nil {
		return HRDashboard{}, err
	}

	employees, assessments, err := c.people(ctx, companyID)
	if err != nil {
		return HRDashboard{}, err
	}

	summary := SummarizeHR(employees, assessments)
	perf := EstimateTrend(PerformanceSeries(assessments, w))
	headcount := EstimateTrend(HeadcountSeries(employees, w))

	forecast, err := perf.Forecast(opts.ForecastMonths)
	if err != nil {
		return HRDashboard{}, err
	}
	capScores(forecast.Points)

	f := facts{hr: &summary}

	return HRDashboard{
		Period:   w.Period(),
		Summary:  summary,
		Trends:   HRTrends{Performance: perf, Headcount: headcount},
		Forecast: forecast,
		KPIs: []KPI{
			{Key: "headcount", Value: float64(summary.TotalEmployees), Unit: "count"},
			{Key: "assessment_coverage", Value: summary.AssessmentCoverage, Unit: "percent"},
			{Key: "avg_performance_score", Value: summary.AvgPerformanceScore, Unit: "score"},
			{Key: "average_salary", Value: summary.AverageSalary, Unit: "currency"},
		},
		Alerts:   evaluateAlerts(f),
		Insights: evaluateInsights(f),
		Departments: GroupBy(employees,
			func(e Employee) string { return e.Department },
			func(e Employee) float64 { return e.Salary }),
		TestTypes: GroupBy(assessments,
			func(a AssessmentResult) string { return a.TestType },
			func(a AssessmentResult) float64 { return a.Score }),
		TopPerformers: TopPerformers(employees, assessments, topPerformersLimit),
	}, nil
}

type OverviewKPIs struct {
	RevenuePerEmployee float64 `json:"revenue_per_employee"`
	ProfitPerEmployee  float64 `json:"profit_per_employee"`
	AveragePerformance float64 `json:"average_performance"`
	ProfitMargin       float64 `json:"profit_margin"`
	RevenueGrowth      float64 `json:"revenue_growth"`
	TeamEfficiency     float64 `json:"team_efficiency"`
}

type OverviewSummary struct {
	Financial Summary   `json:"financial"`
	HR        HRSummary `json:"hr"`
}

type OverviewTrends struct {
	Revenue     Estimate `json:"revenue"`
	Expenses    Estimate `json:"expenses"`
	Profit      Estimate `json:"profit"`
	Performance Estimate `json:"performance"`
}

type Overview struct {
	Period   Period           `json:"period"`
	Summary  OverviewSummary  `json:"summary"`
	Trends   OverviewTrends   `json:"trends"`
	Forecast CashFlowForecast `json:"forecast"`
	KPIs     OverviewKPIs     `json:"kpis"`
	Alerts   []Alert          `json:"alerts"`
	Insights []Insight        `json:"insights"`
}

// Overview correlates the financial and HR summaries.
func (c *Composer) Overview(ctx context.Context, companyID uint, opts Options) (Overview, error) {
	opts, err := opts.normalize()
	if err != nil {
		return Overview{}, err
	}

	w, fin, err := c.financial(ctx, companyID, opts)
	if err != nil {
		return Overview{}, err
	}
	employees, assessments, err := c.people(ctx, companyID)
	if err != nil {
		return Overview{}, err
	}

	forecast, err := cashFlowForecast(fin.trends, opts.ForecastMonths)
	if err != nil {
		return Overview{}, err
	}

	hr := SummarizeHR(employees, assessments)
	kpis := overviewKPIs(fin.summary, hr)

	f := facts{
		financial:    &fin.summary,
		hr:           &hr,
		kpis:         &kpis,
		revenueTrend: fin.trends.Revenue.Direction,
		expenseTrend: fin.trends.Expenses.Direction,
	}

	return Overview{
		Period:  w.Period(),
		Summary: OverviewSummary{Financial: fin.summary, HR: hr},
		Trends: OverviewTrends{
			Revenue:     fin.trends.Revenue,
			Expenses:    fin.trends.Expenses,
			Profit:      fin.trends.Profit,
			Performance: EstimateTrend(PerformanceSeries(assessments, w)),
		},
		Forecast: forecast,
		KPIs:     kpis,
		Alerts:   evaluateAlerts(f),
		Insights: evaluateInsights(f),
	}, nil
}

type PredictionKind string

const (
	PredictRevenue     PredictionKind = "revenue"
	PredictExpenses    PredictionKind = "expenses"
	PredictProfit      PredictionKind = "profit"
	PredictPerformance PredictionKind = "performance"
	PredictHeadcount   PredictionKind = "headcount"
)

type Prediction struct {
	Type     PredictionKind `json:"type"`
	Trend    Estimate       `json:"trend"`
	Forecast Forecast       `json:"predictions"`
}

// Predict projects a single metric.
func (c *Composer) Predict(ctx context.Context, companyID uint, kind PredictionKind, opts Options) (Prediction, error) {
	opts, err := opts.normalize()
	if err != nil {
		return Prediction{}, err
	}

	var est Estimate
	switch kind {
	case PredictRevenue, PredictExpenses, PredictProfit:
		_, fin, err := c.financial(ctx, companyID, opts)
		if err != nil {
			return Prediction{}, err
		}
		switch kind {
		case PredictRevenue:
			est = fin.trends.Revenue
		case PredictExpenses:
			est = fin.trends.Expenses
		default:
			est = fin.trends.Profit
		}
	case PredictPerformance, PredictHeadcount:
		w, err := TrailingWindow(c.now(), opts.WindowMonths)
		if err != nil {
			return Prediction{}, err
		}
		employees, assessments, err := c.people(ctx, companyID)
		if err != nil {
			return Prediction{}, err
		}
		if kind == PredictPerformance {
			est = EstimateTrend(PerformanceSeries(assessments, w))
		} else {
			est = EstimateTrend(HeadcountSeries(employees, w))
		}
	default:
		return Prediction{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown prediction type %q", kind)}
	}

	forecast, err := est.Forecast(opts.ForecastMonths)
	if err != nil {
		return Prediction{}, err
	}
	if kind == PredictPerformance {
		capScores(forecast.Points)
	}
	return Prediction{Type: kind, Trend: est, Forecast: forecast}, nil
}

type financialView struct {
	records []Record
	summary Summary
	monthly []MonthTotal
	trends  FinancialTrends
}

func (c *Composer) financial(ctx context.Context, companyID uint, opts Options) (Window, financialView, error) {
	w, err := TrailingWindow(c.now(), opts.WindowMonths)
	if err != nil {
		return Window{}, financialView{}, err
	}

	from, to := w.Span()
	var records []Record
	switch opts.Series {
	case SeriesTransactions:
		records, err = c.source.Transactions(ctx, companyID, from, to)
	default:
		records, err = c.source.FinancialRecords(ctx, companyID, from, to)
	}
	if err != nil {
		return Window{}, financialView{}, wrapFetch(string(opts.Series), err)
	}

	summary, err := Aggregate(companyID, records, w)
	if err != nil {
		return Window{}, financialView{}, err
	}

	monthly := MonthlyTotals(records, w)
	return w, financialView{
		records: records,
		summary: summary,
		monthly: monthly,
		trends: FinancialTrends{
			Revenue:  EstimateTrend(Series(monthly, RevenueMetric)),
			Expenses: EstimateTrend(Series(monthly, ExpensesMetric)),
			Profit:   EstimateTrend(Series(monthly, ProfitMetric)),
		},
	}, nil
}

func (c *Composer) people(ctx context.Context, companyID uint) ([]Employee, []AssessmentResult, error) {
	employees, err := c.source.Employees(ctx, companyID)
	if err != nil {
		return nil, nil, wrapFetch("employees", err)
	}
	assessments, err := c.source.Assessments(ctx, companyID)
	if err != nil {
		return nil, nil, wrapFetch("assessments", err)
	}
	return employees, assessments, nil
}

func wrapFetch(source string, err error) error {
	var du *DataUnavailableError
	if errors.As(err, &du) {
		return err
	}
	return unavailable(source, err)
}

// cashFlowForecast pairs the revenue and expense projections month by month.
func cashFlowForecast(trends FinancialTrends, months int) (CashFlowForecast, error) {
	rev, err := trends.Revenue.Forecast(months)
	if err != nil {
		return CashFlowForecast{}, err
	}
	exp, err := trends.Expenses.Forecast(months)
	if err != nil {
		return CashFlowForecast{}, err
	}
	if rev.Empty() || exp.Empty() {
		return CashFlowForecast{Points: []CashFlowPoint{}, Message: MessageInsufficientData}, nil
	}

	out := make([]CashFlowPoint, 0, len(rev.Points))
	for i, r := range rev.Points {
		e := exp.Points[i]
		out = append(out, CashFlowPoint{
			Month:             r.Month,
			Period:            r.Period,
			PredictedRevenue:  r.Value,
			PredictedExpenses: e.Value,
			PredictedProfit:   round2(r.Value - e.Value),
			Confidence:        r.Confidence,
		})
	}
	return CashFlowForecast{Points: out}, nil
}

// monthlyKPIs compares the latest month with the one before it.
func monthlyKPIs(monthly []MonthTotal, s Summary) []KPI {
	var cur, prev MonthTotal
	if n := len(monthly); n > 0 {
		cur = monthly[n-1]
		if n > 1 {
			prev = monthly[n-2]
		}
	}

	curMargin := round2(ratio(cur.Profit, cur.Revenue) * 100)
	prevMargin := round2(ratio(prev.Profit, prev.Revenue) * 100)

	return []KPI{
		kpi("revenue", cur.Revenue, prev.Revenue, "currency"),
		kpi("expenses", cur.Expenses, prev.Expenses, "currency"),
		kpi("profit", cur.Profit, prev.Profit, "currency"),
		kpi("profit_margin", curMargin, prevMargin, "percent"),
		{Key: "revenue_growth", Value: s.RevenueGrowth, Unit: "percent"},
	}
}

func kpi(key string, cur, prev float64, unit string) KPI {
	return KPI{
		Key:      key,
		Value:    cur,
		Previous: prev,
		Change:   round2(ratio(cur-prev, prev) * 100),
		Unit:     unit,
	}
}

func overviewKPIs(s Summary, hr HRSummary) OverviewKPIs {
	employees := float64(hr.TotalEmployees)
	rpe := ratio(s.TotalRevenue, employees)
	return OverviewKPIs{
		RevenuePerEmployee: round2(rpe),
		ProfitPerEmployee:  round2(ratio(s.NetProfit, employees)),
		AveragePerformance: hr.AvgPerformanceScore,
		ProfitMargin:       s.ProfitMargin,
		RevenueGrowth:      s.RevenueGrowth,
		TeamEfficiency:     round1((rpe / 1000) * (hr.AvgPerformanceScore / 100)),
	}
}

func capScores(points []ForecastPoint) {
	for i := range points {
		if points[i].Value > 100 {
			points[i].Value = 100
		}
	}
}
