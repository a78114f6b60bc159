package report

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/config"
	"doflow-backend/internal/database"
	"doflow-backend/internal/models"
	"doflow-backend/internal/store"
	"doflow-backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFinancialWorkbook(t *testing.T) {
	view := analytics.FinancialDashboard{
		Period:  analytics.Period{From: "2024-07-01", To: "2025-06-30", Months: 12},
		Series:  analytics.SeriesFinancialRecords,
		Summary: analytics.Summary{TotalRevenue: 100000, TotalExpenses: 60000, NetProfit: 40000, ProfitMargin: 40},
		Monthly: []analytics.MonthTotal{
			{Label: "2025-05", Revenue: 50000, Expenses: 30000, Profit: 20000, Count: 3},
			{Label: "2025-06", Revenue: 50000, Expenses: 30000, Profit: 20000, Count: 2},
		},
		Forecast: analytics.CashFlowForecast{Points: []analytics.CashFlowPoint{}, Message: analytics.MessageInsufficientData},
		Alerts:   []analytics.Alert{{Type: analytics.SeverityWarning, Category: "financial", Message: "Margine basso"}},
	}

	f, err := FinancialWorkbook("Alfa Srl", view)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Riepilogo", "Mensile", "Previsioni", "Avvisi"}, f.GetSheetList())

	name, err := f.GetCellValue("Riepilogo", "B1")
	require.NoError(t, err)
	require.Equal(t, "Alfa Srl", name)

	margin, err := f.GetCellValue("Riepilogo", "B8")
	require.NoError(t, err)
	require.Equal(t, "40", margin)

	rows, err := f.GetRows("Mensile")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "2025-06", rows[2][0])

	msg, err := f.GetCellValue("Previsioni", "A2")
	require.NoError(t, err)
	require.Equal(t, analytics.MessageInsufficientData, msg)

	alert, err := f.GetCellValue("Avvisi", "C2")
	require.NoError(t, err)
	require.Equal(t, "Margine basso", alert)
}

func TestFinancialReportHandler(t *testing.T) {
	db := database.OpenTest(t)
	actor := testutil.SeedCompany(t, db, "Alfa Srl")

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	// four whole months before the current one
	for i := 1; i <= 4; i++ {
		rec := models.FinancialRecord{
			CompanyID: actor.CompanyID,
			Date:      monthStart.AddDate(0, -i, 0),
			Revenue:   float64(10000 + i*1000),
			Expenses:  5000,
		}
		require.NoError(t, db.Create(&rec).Error)
	}

	composer := analytics.NewComposer(store.New(db))
	app := testutil.NewApp(actor)
	app.Get("/reports/financial.xlsx", FinancialReportHandler(db, composer, config.Analytics{WindowMonths: 12, ForecastMonths: 6}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/reports/financial.xlsx", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, xlsxMime, resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "report-finanziario-")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Mensile")
	require.NoError(t, err)
	require.Len(t, rows, 5)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/reports/financial.xlsx?period=x", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
