package dashboard

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/config"
	"doflow-backend/internal/models"
	"doflow-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	records []analytics.Record
	err     error
}

func (f fakeSource) FinancialRecords(_ context.Context, _ uint, _, _ time.Time) ([]analytics.Record, error) {
	return f.records, f.err
}

func (f fakeSource) Transactions(_ context.Context, _ uint, _, _ time.Time) ([]analytics.Record, error) {
	return nil, f.err
}

func (f fakeSource) Employees(context.Context, uint) ([]analytics.Employee, error) {
	return nil, f.err
}

func (f fakeSource) Assessments(context.Context, uint) ([]analytics.AssessmentResult, error) {
	return nil, f.err
}

func newDashboardApp(src analytics.Source) *fiber.App {
	h := NewHandlers(
		analytics.NewComposer(src, analytics.WithClock(func() time.Time { return testNow })),
		config.Analytics{WindowMonths: 12, ForecastMonths: 6},
	)
	app := testutil.NewApp(auth.Actor{UserID: 1, CompanyID: 1, Role: models.RoleAdmin})
	app.Get("/financial/dashboard", h.FinancialDashboard)
	app.Get("/financial/forecast", h.Forecast)
	app.Get("/hr/dashboard", h.HRDashboard)
	app.Get("/analytics/overview", h.Overview)
	app.Get("/analytics/predictions", h.Predictions)
	app.Get("/analytics/kpi/:type", h.KPIAnalysis)
	app.Post("/analytics/reports", h.CustomReport)
	return app
}

func monthlyRevenue(values ...float64) []analytics.Record {
	out := make([]analytics.Record, 0, len(values))
	start := time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		out = append(out, analytics.Record{CompanyID: 1, Date: start.AddDate(0, i, 0), Revenue: v})
	}
	return out
}

func TestForecastEndpoint(t *testing.T) {
	app := newDashboardApp(fakeSource{records: monthlyRevenue(10000, 11000, 12000, 13000, 14000, 15000)})

	var got analytics.CashFlowForecast
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/financial/forecast?months=3", nil, &got))
	require.Len(t, got.Points, 3)
	require.Empty(t, got.Message)
}

func TestForecastInsufficientData(t *testing.T) {
	app := newDashboardApp(fakeSource{records: monthlyRevenue(1000)})

	var got map[string]any
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/financial/forecast", nil, &got))
	require.Equal(t, analytics.MessageInsufficientData, got["message"])
	require.Empty(t, got["forecast"])
}

func TestDashboardErrorMapping(t *testing.T) {
	ok := newDashboardApp(fakeSource{records: monthlyRevenue(1, 2, 3)})

	var body map[string]string
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, ok, http.MethodGet, "/financial/dashboard?period=0", nil, &body))
	require.Contains(t, body["error"], "window_months")

	require.Equal(t, http.StatusBadRequest, testutil.Do(t, ok, http.MethodGet, "/financial/dashboard?period=abc", nil, nil))
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, ok, http.MethodGet, "/financial/dashboard?series=ledger", nil, nil))
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, ok, http.MethodGet, "/analytics/predictions?type=weather", nil, nil))

	broken := newDashboardApp(fakeSource{err: errors.New("connection refused")})
	for _, path := range []string{"/financial/dashboard", "/hr/dashboard", "/analytics/overview", "/analytics/predictions"} {
		status := testutil.Do(t, broken, http.MethodGet, path, nil, &body)
		require.Equal(t, http.StatusBadGateway, status, path)
		require.NotContains(t, body["error"], "connection refused")
	}
}

func TestDashboardShape(t *testing.T) {
	app := newDashboardApp(fakeSource{records: monthlyRevenue(10000, 11000, 12000, 13000, 14000, 15000)})

	var got map[string]any
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/financial/dashboard", nil, &got))
	for _, key := range []string{"summary", "trends", "forecast", "kpis", "alerts", "insights"} {
		require.Contains(t, got, key)
	}

	var pred analytics.Prediction
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/analytics/predictions?type=revenue&months=2", nil, &pred))
	require.Equal(t, analytics.DirectionUp, pred.Trend.Direction)
	require.Len(t, pred.Forecast.Points, 2)
}

func TestKPIAnalysisEndpoint(t *testing.T) {
	app := newDashboardApp(fakeSource{records: monthlyRevenue(10000, 11000, 12000, 13000, 14000, 15000)})

	var got analytics.KPIAnalysis
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/analytics/kpi/financial?period=6", nil, &got))
	require.Equal(t, analytics.KPIFinancial, got.Type)
	require.Equal(t, 6, got.Period.Months)
	require.Len(t, got.Current, 3)
	require.NotEmpty(t, got.Recommendations)

	var body map[string]string
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, app, http.MethodGet, "/analytics/kpi/marketing", nil, &body))
	require.Equal(t, "Parametro non valido: type", body["error"])
}

func TestCustomReportEndpoint(t *testing.T) {
	app := newDashboardApp(fakeSource{records: monthlyRevenue(10000, 11000, 12000, 13000, 14000, 15000)})

	var got analytics.CustomReport
	status := testutil.Do(t, app, http.MethodPost, "/analytics/reports", map[string]any{
		"title":    "Report del mese",
		"sections": []string{"financial_summary", "predictions"},
		"period":   6,
	}, &got)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Report del mese", got.Title)
	require.Equal(t, 6, got.Period.Months)
	require.NotNil(t, got.Sections.Financial)
	require.NotNil(t, got.Sections.Predictions)
	require.Nil(t, got.Sections.HR)
	require.Len(t, got.ExecutiveSummary, 2)

	var body map[string]string
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, app, http.MethodPost, "/analytics/reports", map[string]any{"sections": []string{}}, &body))
	require.Equal(t, "Parametro non valido: sections", body["error"])
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, app, http.MethodPost, "/analytics/reports", map[string]any{"sections": []string{"gossip"}}, nil))

	broken := newDashboardApp(fakeSource{err: errors.New("connection refused")})
	require.Equal(t, http.StatusBadGateway, testutil.Do(t, broken, http.MethodPost, "/analytics/reports", map[string]any{"sections": []string{"hr_summary"}}, nil))
}
