package dashboard

import (
	"strconv"
	"time"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChartPeriod string

const (
	PeriodDaily   ChartPeriod = "daily"
	PeriodWeekly  ChartPeriod = "weekly"
	PeriodMonthly ChartPeriod = "monthly"
)

const maxChartBuckets = 366

type CashChartPoint struct {
	Label    string          `json:"label"` // first day of the bucket
	Bank     decimal.Decimal `json:"bank"`
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

type CashChartTotals struct {
	Bank     decimal.Decimal `json:"bank"`
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

type CashChartResponse struct {
	Period      ChartPeriod      `json:"period"`
	From        string           `json:"from"`
	To          string           `json:"to"` // inclusive
	Points      []CashChartPoint `json:"points"`
	GrandTotals CashChartTotals  `json:"grand_totals"`
}

func defaultCount(p ChartPeriod) int {
	switch p {
	case PeriodWeekly:
		return 8
	case PeriodMonthly:
		return 12
	}
	return 7
}

// bucketStart truncates d to the start of its day, ISO week or month (UTC).
func bucketStart(p ChartPeriod, d time.Time) time.Time {
	d = d.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func step(p ChartPeriod, t time.Time, n int) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7*n)
	case PeriodMonthly:
		return t.AddDate(0, n, 0)
	}
	return t.AddDate(0, 0, n)
}

// ChartRange returns the first bucket start and the exclusive end covering
// count buckets up to and including the one containing now.
func ChartRange(p ChartPeriod, count int, now time.Time) (time.Time, time.Time) {
	last := bucketStart(p, now)
	return step(p, last, -(count - 1)), step(p, last, 1)
}

// BuildCashChart buckets income and expenses by period. Income is split by
// payment method; savings movements are ignored. Every bucket in range is
// present, including empty ones.
func BuildCashChart(p ChartPeriod, count int, now time.Time, txs []models.Transaction) CashChartResponse {
	from, end := ChartRange(p, count, now)

	points := make([]CashChartPoint, count)
	for i := range points {
		points[i].Label = step(p, from, i).Format("2006-01-02")
	}

	resp := CashChartResponse{
		Period: p,
		From:   from.Format("2006-01-02"),
		To:     end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points: points,
	}

	index := make(map[string]int, count)
	for i, pt := range points {
		index[pt.Label] = i
	}

	g := &resp.GrandTotals
	for _, t := range txs {
		i, ok := index[bucketStart(p, t.Date).Format("2006-01-02")]
		if !ok {
			continue
		}
		pt := &points[i]
		switch t.Type {
		case models.TransactionIncome:
			pt.Income = pt.Income.Add(t.Amount)
			g.Income = g.Income.Add(t.Amount)
			switch t.PaymentMethod {
			case models.PaymentBank:
				pt.Bank = pt.Bank.Add(t.Amount)
				g.Bank = g.Bank.Add(t.Amount)
			case models.PaymentCash:
				pt.Cash = pt.Cash.Add(t.Amount)
				g.Cash = g.Cash.Add(t.Amount)
			case models.PaymentCard:
				pt.Card = pt.Card.Add(t.Amount)
				g.Card = g.Card.Add(t.Amount)
			}
		case models.TransactionExpense:
			pt.Expenses = pt.Expenses.Add(t.Amount)
			g.Expenses = g.Expenses.Add(t.Amount)
		}
	}

	for i := range points {
		points[i].Net = points[i].Income.Sub(points[i].Expenses)
	}
	g.Net = g.Income.Sub(g.Expenses)
	return resp
}

// GET /api/dashboard/cash-chart?period=daily&count=7
func CashChartHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		period := ChartPeriod(c.Query("period", string(PeriodDaily)))
		switch period {
		case PeriodDaily, PeriodWeekly, PeriodMonthly:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Periodo non valido (daily|weekly|monthly)")
		}

		count := defaultCount(period)
		if s := c.Query("count"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > maxChartBuckets {
				return fiber.NewError(fiber.StatusBadRequest, "count non valido")
			}
			count = n
		}

		now := time.Now().UTC()
		from, end := ChartRange(period, count, now)

		var txs []models.Transaction
		if err := db.WithContext(c.UserContext()).
			Where("company_id = ? AND date >= ? AND date < ?", companyID, from, end).
			Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Errore durante l'aggregazione dei dati")
		}

		return c.JSON(BuildCashChart(period, count, now, txs))
	}
}
