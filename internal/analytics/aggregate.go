package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Record is the flattened row the aggregator works on. Financial records map
// onto it directly; transactions go through TransactionRecord.
type Record struct {
	CompanyID uint
	Date      time.Time
	Revenue   float64
	Expenses  float64
	Category  string
}

func (r Record) Profit() float64 {
	return r.Revenue - r.Expenses
}

// TransactionRecord maps a ledger entry onto a Record. Savings movements are
// neither revenue nor expense and report ok=false.
func TransactionRecord(companyID uint, date time.Time, kind string, amount float64, category string) (Record, bool) {
	r := Record{CompanyID: companyID, Date: date, Category: category}
	switch kind {
	case "income":
		r.Revenue = amount
	case "expense":
		r.Expenses = amount
	default:
		return Record{}, false
	}
	return r, true
}

type Summary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	NetProfit     float64 `json:"net_profit"`
	ProfitMargin  float64 `json:"profit_margin"`
	RevenueGrowth float64 `json:"revenue_growth"`
	RecordCount   int     `json:"record_count"`
}

// Aggregate sums the records falling in w, month to date included. Growth
// compares the whole months of w against the preceding window so that a
// month in progress does not skew it. Records owned by another company are
// rejected.
func Aggregate(companyID uint, records []Record, w Window) (Summary, error) {
	if w.Months < 1 {
		return Summary{}, &ValidationError{Field: "window_months", Reason: "must be >= 1"}
	}
	if err := checkRecords(companyID, records); err != nil {
		return Summary{}, err
	}

	prev := w.Previous()
	whole := w.Complete()
	var s Summary
	var prevRevenue, wholeRevenue float64
	for _, r := range records {
		switch {
		case w.Contains(r.Date):
			s.TotalRevenue += r.Revenue
			s.TotalExpenses += r.Expenses
			s.RecordCount++
			if whole.Contains(r.Date) {
				wholeRevenue += r.Revenue
			}
		case prev.Contains(r.Date):
			prevRevenue += r.Revenue
		}
	}

	s.NetProfit = s.TotalRevenue - s.TotalExpenses
	s.ProfitMargin = round2(ratio(s.NetProfit, s.TotalRevenue) * 100)
	s.RevenueGrowth = round2(ratio(wholeRevenue-prevRevenue, prevRevenue) * 100)
	s.TotalRevenue = round2(s.TotalRevenue)
	s.TotalExpenses = round2(s.TotalExpenses)
	s.NetProfit = round2(s.NetProfit)
	return s, nil
}

func checkRecords(companyID uint, records []Record) error {
	for i, r := range records {
		if r.CompanyID != companyID {
			return &ValidationError{
				Field:  "company_id",
				Reason: fmt.Sprintf("record %d belongs to company %d, expected %d", i, r.CompanyID, companyID),
			}
		}
		if r.Revenue < 0 || r.Expenses < 0 {
			return &ValidationError{Field: "amount", Reason: fmt.Sprintf("record %d has a negative amount", i)}
		}
	}
	return nil
}

type MonthTotal struct {
	Month    time.Time `json:"-"`
	Label    string    `json:"month"`
	Revenue  float64   `json:"revenue"`
	Expenses float64   `json:"expenses"`
	Profit   float64   `json:"profit"`
	Count    int       `json:"count"`
}

// MonthlyTotals buckets the records inside the whole months of w by calendar
// month. The month in progress is left out. Only months that have data are
// returned, oldest first.
func MonthlyTotals(records []Record, w Window) []MonthTotal {
	w = w.Complete()
	byMonth := make(map[time.Time]*MonthTotal)
	for _, r := range records {
		if !w.Contains(r.Date) {
			continue
		}
		m := monthStart(r.Date)
		t, ok := byMonth[m]
		if !ok {
			t = &MonthTotal{Month: m, Label: m.Format("2006-01")}
			byMonth[m] = t
		}
		t.Revenue += r.Revenue
		t.Expenses += r.Expenses
		t.Count++
	}

	out := make([]MonthTotal, 0, len(byMonth))
	for _, t := range byMonth {
		t.Revenue = round2(t.Revenue)
		t.Expenses = round2(t.Expenses)
		t.Profit = round2(t.Revenue - t.Expenses)
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

type Metric func(MonthTotal) float64

func RevenueMetric(t MonthTotal) float64  { return t.Revenue }
func ExpensesMetric(t MonthTotal) float64 { return t.Expenses }
func ProfitMetric(t MonthTotal) float64   { return t.Profit }

// Series projects monthly totals onto one metric.
func Series(totals []MonthTotal, metric Metric) []Point {
	out := make([]Point, 0, len(totals))
	for _, t := range totals {
		out = append(out, Point{Month: t.Month, Value: metric(t)})
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ratio returns 0 when the denominator is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
