package financial

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doflow-backend/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseRecordsXLSX(t *testing.T) {
	data := workbook(t, [][]any{
		{"Data", "Ricavi", "Spese", "Categoria", "Descrizione"},
		{"2025-01-15", "1200.50", "300", "sales", "gennaio"},
		{"15/02/2025", "1.500,00", "", "services", ""},
		{"not a date", "10", "5", "", ""},
		{"2025-03-01", "-10", "0", "", ""},
		{"", "", "", "", ""},
	})

	rows, problems, err := ParseRecordsXLSX(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, problems, 2)

	require.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), rows[0].Date)
	require.Equal(t, 1200.5, rows[0].Revenue)
	require.Equal(t, 300.0, rows[0].Expenses)
	require.Equal(t, "gennaio", rows[0].Description)

	require.Equal(t, 1500.0, rows[1].Revenue)
	require.Zero(t, rows[1].Expenses)
	require.Equal(t, 3, rows[1].Line)

	require.Contains(t, problems[0], "riga 4")
	require.Contains(t, problems[1], "riga 5")
}

func TestParseRecordsXLSXRejectsGarbage(t *testing.T) {
	_, _, err := ParseRecordsXLSX(bytes.NewReader([]byte("not a workbook")))
	require.Error(t, err)
}

func TestImportRecordsHandler(t *testing.T) {
	app, db, companyID := newRecordsApp(t)
	app.Post("/import", ImportRecordsHandler(db))

	data := workbook(t, [][]any{
		{"date", "revenue", "expenses", "category"},
		{"2025-01-15", "1000", "200", "sales"},
		{"2025-02-15", "800", "100", "sales"},
	})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "records.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.FinancialRecord{}).Where("company_id = ?", companyID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}
