// Package report renders analytics views as spreadsheets.
package report

import (
	"fmt"

	"doflow-backend/internal/analytics"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary  = "Riepilogo"
	sheetMonthly  = "Mensile"
	sheetForecast = "Previsioni"
	sheetAlerts   = "Avvisi"
)

// FinancialWorkbook writes the dashboard into four sheets. The caller owns
// the returned file and must close it.
func FinancialWorkbook(companyName string, view analytics.FinancialDashboard) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{sheetMonthly, sheetForecast, sheetAlerts} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	s := view.Summary
	summaryRows := [][]any{
		{"Azienda", companyName},
		{"Periodo", fmt.Sprintf("%s / %s", view.Period.From, view.Period.To)},
		{"Serie", string(view.Series)},
		{},
		{"Ricavi totali", s.TotalRevenue},
		{"Spese totali", s.TotalExpenses},
		{"Utile netto", s.NetProfit},
		{"Margine (%)", s.ProfitMargin},
		{"Crescita ricavi (%)", s.RevenueGrowth},
		{"Record", s.RecordCount},
		{},
		{"Trend ricavi", string(view.Trends.Revenue.Direction)},
		{"Trend spese", string(view.Trends.Expenses.Direction)},
		{"Trend utile", string(view.Trends.Profit.Direction)},
	}
	if err := writeRows(f, sheetSummary, summaryRows); err != nil {
		f.Close()
		return nil, err
	}

	monthly := [][]any{{"Mese", "Ricavi", "Spese", "Utile", "Record"}}
	for _, m := range view.Monthly {
		monthly = append(monthly, []any{m.Label, m.Revenue, m.Expenses, m.Profit, m.Count})
	}
	if err := writeRows(f, sheetMonthly, monthly); err != nil {
		f.Close()
		return nil, err
	}

	forecast := [][]any{{"Mese", "Ricavi previsti", "Spese previste", "Utile previsto", "Affidabilità"}}
	for _, p := range view.Forecast.Points {
		forecast = append(forecast, []any{p.Month, p.PredictedRevenue, p.PredictedExpenses, p.PredictedProfit, p.Confidence})
	}
	if view.Forecast.Message != "" {
		forecast = append(forecast, []any{view.Forecast.Message})
	}
	if err := writeRows(f, sheetForecast, forecast); err != nil {
		f.Close()
		return nil, err
	}

	alerts := [][]any{{"Tipo", "Categoria", "Messaggio"}}
	for _, a := range view.Alerts {
		alerts = append(alerts, []any{string(a.Type), a.Category, a.Message})
	}
	for _, in := range view.Insights {
		alerts = append(alerts, []any{string(in.Type), in.Category, in.Title + ": " + in.Message})
	}
	if err := writeRows(f, sheetAlerts, alerts); err != nil {
		f.Close()
		return nil, err
	}

	for _, sheet := range []string{sheetMonthly, sheetForecast, sheetAlerts} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetColStyle(sheetSummary, "A", bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
