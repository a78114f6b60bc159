package financial

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ImportRow is one parsed spreadsheet line.
type ImportRow struct {
	Line        int
	Date        time.Time
	Revenue     float64
	Expenses    float64
	Category    string
	Description string
}

// accepted date formats, in order
var importDateLayouts = []string{"2006-01-02", "02/01/2006", "01-02-06", "2006/01/02"}

// ParseRecordsXLSX reads the first sheet with the columns
// date | revenue | expenses | category | description. A header row is
// skipped. Invalid lines are reported and do not stop the import.
func ParseRecordsXLSX(r io.Reader) ([]ImportRow, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	out := make([]ImportRow, 0, len(rows))
	problems := make([]string, 0)

	for i, row := range rows {
		line := i + 1
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if i == 0 && isHeader(row[0]) {
			continue
		}

		parsed, err := parseRow(row)
		if err != nil {
			problems = append(problems, fmt.Sprintf("riga %d: %v", line, err))
			continue
		}
		parsed.Line = line
		out = append(out, parsed)
	}
	return out, problems, nil
}

func isHeader(cell string) bool {
	c := strings.ToLower(strings.TrimSpace(cell))
	return c == "date" || c == "data" || strings.HasPrefix(c, "date") || strings.HasPrefix(c, "data")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string) (ImportRow, error) {
	var out ImportRow

	d, err := parseImportDate(cell(row, 0))
	if err != nil {
		return out, err
	}
	out.Date = d

	if out.Revenue, err = parseAmount(cell(row, 1)); err != nil {
		return out, fmt.Errorf("ricavo: %w", err)
	}
	if out.Expenses, err = parseAmount(cell(row, 2)); err != nil {
		return out, fmt.Errorf("spesa: %w", err)
	}
	if out.Revenue < 0 || out.Expenses < 0 {
		return out, fmt.Errorf("importi negativi non ammessi")
	}
	out.Category = cell(row, 3)
	out.Description = cell(row, 4)
	return out, nil
}

func parseImportDate(s string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	// spreadsheet serial date
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		d, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("data non valida %q", s)
}

// parseAmount accepts "1234.5", "1.234,50" and "1234,50"; empty is zero.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}
