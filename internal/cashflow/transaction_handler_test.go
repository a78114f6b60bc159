package cashflow

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/database"
	"doflow-backend/internal/models"
	"doflow-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTransactionsApp(t *testing.T) (*fiber.App, *gorm.DB, uint) {
	t.Helper()
	db := database.OpenTest(t)
	actor := testutil.SeedCompany(t, db, "Alfa Srl")

	app := testutil.NewApp(actor)
	app.Get("/transactions", ListTransactionsHandler(db))
	app.Get("/transactions/summary/monthly", MonthlySummaryHandler(db))
	app.Post("/transactions", CreateTransactionHandler(db))
	app.Put("/transactions/:id", UpdateTransactionHandler(db))
	app.Delete("/transactions/:id", DeleteTransactionHandler(db))
	return app, db, actor.CompanyID
}

func TestNewTransactionID(t *testing.T) {
	id := NewTransactionID()
	require.True(t, strings.HasPrefix(id, "T-"))
	require.Len(t, id, 12)
	require.NotEqual(t, id, NewTransactionID())
}

func TestTransactionsLifecycle(t *testing.T) {
	app, db, companyID := newTransactionsApp(t)

	var created TransactionResponse
	status := testutil.Do(t, app, http.MethodPost, "/transactions", map[string]any{
		"name": "Fattura 12", "amount": "1250.456", "type": "income", "payment_method": "card", "date": "2025-05-04",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, created.Amount.Equal(decimal.RequireFromString("1250.46")))
	require.Equal(t, models.PaymentCard, created.PaymentMethod)
	require.True(t, strings.HasPrefix(created.TransactionID, "T-"))

	status = testutil.Do(t, app, http.MethodPost, "/transactions", map[string]any{
		"name": "Affitto", "amount": 800, "type": "expense", "date": "2025-05-10",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var incomes []TransactionResponse
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/transactions?type=income", nil, &incomes))
	require.Len(t, incomes, 1)

	var summary MonthlySummaryResponse
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/transactions/summary/monthly?year=2025&month=5", nil, &summary))
	require.True(t, summary.TotalIncome.Equal(decimal.RequireFromString("1250.46")))
	require.True(t, summary.TotalExpenses.Equal(decimal.NewFromInt(800)))
	require.True(t, summary.Net.Equal(decimal.RequireFromString("450.46")))
	require.Len(t, summary.Items, 2)

	var updated TransactionResponse
	path := fmt.Sprintf("/transactions/%d", created.ID)
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodPut, path, map[string]any{"notes": "saldata"}, &updated))
	require.Equal(t, "saldata", updated.Notes)
	require.Equal(t, created.TransactionID, updated.TransactionID)

	require.Equal(t, http.StatusNoContent, testutil.Do(t, app, http.MethodDelete, path, nil, nil))

	var deleteLog models.AuditLog
	require.NoError(t, db.Where("company_id = ? AND action = ?", companyID, models.AuditActionDelete).First(&deleteLog).Error)
	require.NoError(t, audit.UndoLog(db, companyID, deleteLog.ID, 1, "Anna Rossi"))

	var restored models.Transaction
	require.NoError(t, db.First(&restored, created.ID).Error)
	require.Equal(t, "saldata", restored.Notes)
}

func TestTransactionValidation(t *testing.T) {
	app, db, _ := newTransactionsApp(t)

	cases := []map[string]any{
		{"amount": 10, "type": "income"},
		{"name": "x", "amount": 0, "type": "income"},
		{"name": "x", "amount": 10, "type": "gift"},
		{"name": "x", "amount": 10, "type": "income", "payment_method": "cheque"},
		{"name": "x", "amount": 10, "type": "income", "date": "2025-13-01"},
	}
	for i, body := range cases {
		status := testutil.Do(t, app, http.MethodPost, "/transactions", body, nil)
		require.Equal(t, http.StatusBadRequest, status, "case %d", i)
	}

	other := testutil.SeedCompany(t, db, "Beta Spa")
	client := models.Client{CompanyID: other.CompanyID, Name: "Altrui"}
	require.NoError(t, db.Create(&client).Error)

	status := testutil.Do(t, app, http.MethodPost, "/transactions", map[string]any{
		"name": "x", "amount": 10, "type": "income", "client_id": client.ID,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}
