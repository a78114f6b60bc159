package cashflow

import (
	"time"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SummaryItem struct {
	Type          models.TransactionType `json:"type"`
	PaymentMethod models.PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal        `json:"total"`
	Count         int                    `json:"count"`
}

type MonthlySummaryResponse struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	Items         []SummaryItem   `json:"items"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalSavings  decimal.Decimal `json:"total_savings"`
	Net           decimal.Decimal `json:"net"`
}

// Summarize groups transactions by type and payment method in first-seen order.
func Summarize(year, month int, txs []models.Transaction) MonthlySummaryResponse {
	resp := MonthlySummaryResponse{Year: year, Month: month, Items: []SummaryItem{}}

	index := map[[2]string]int{}
	for _, t := range txs {
		key := [2]string{string(t.Type), string(t.PaymentMethod)}
		i, ok := index[key]
		if !ok {
			i = len(resp.Items)
			index[key] = i
			resp.Items = append(resp.Items, SummaryItem{Type: t.Type, PaymentMethod: t.PaymentMethod})
		}
		resp.Items[i].Total = resp.Items[i].Total.Add(t.Amount)
		resp.Items[i].Count++

		switch t.Type {
		case models.TransactionIncome:
			resp.TotalIncome = resp.TotalIncome.Add(t.Amount)
		case models.TransactionExpense:
			resp.TotalExpenses = resp.TotalExpenses.Add(t.Amount)
		case models.TransactionSavings:
			resp.TotalSavings = resp.TotalSavings.Add(t.Amount)
		}
	}
	resp.Net = resp.TotalIncome.Sub(resp.TotalExpenses)
	return resp
}

// -------------------------------------------------
// GET /api/transactions/summary/monthly?year=2025&month=12
// -------------------------------------------------
func MonthlySummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		year := c.QueryInt("year", now.Year())
		month := c.QueryInt("month", int(now.Month()))
		if year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "Anno non valido")
		}
		if month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "Mese non valido")
		}

		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)

		var txs []models.Transaction
		if err := db.Where("company_id = ? AND date >= ? AND date < ?", companyID, start, end).
			Order("date ASC").Order("id ASC").
			Find(&txs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Riepilogo non calcolato")
		}

		return c.JSON(Summarize(year, month, txs))
	}
}
