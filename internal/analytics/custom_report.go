package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ReportSection string

const (
	SectionFinancial       ReportSection = "financial_summary"
	SectionHR              ReportSection = "hr_summary"
	SectionPredictions     ReportSection = "predictions"
	SectionInsights        ReportSection = "insights"
	SectionRecommendations ReportSection = "recommendations"
)

const defaultReportTitle = "Report personalizzato"

type ReportRequest struct {
	Title    string
	Sections []ReportSection
	Options  Options
}

type FinancialSection struct {
	Summary    Summary      `json:"summary"`
	KPIs       []KPI        `json:"kpis"`
	Monthly    []MonthTotal `json:"monthly"`
	Categories []Group      `json:"categories"`
}

type HRSection struct {
	Summary       HRSummary   `json:"summary"`
	Departments   []Group     `json:"departments"`
	TopPerformers []Performer `json:"top_performers"`
}

type PredictionsSection struct {
	CashFlow    CashFlowForecast `json:"cash_flow"`
	Performance Forecast         `json:"performance"`
}

type ReportSections struct {
	Financial       *FinancialSection   `json:"financial,omitempty"`
	HR              *HRSection          `json:"hr,omitempty"`
	Predictions     *PredictionsSection `json:"predictions,omitempty"`
	Insights        []Insight           `json:"insights,omitempty"`
	Alerts          []Alert             `json:"alerts,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

type CustomReport struct {
	Title            string          `json:"title"`
	GeneratedAt      time.Time       `json:"generated_at"`
	Period           Period          `json:"period"`
	Requested        []ReportSection `json:"requested_sections"`
	Sections         ReportSections  `json:"sections"`
	ExecutiveSummary []string        `json:"executive_summary"`
}

// parseSections validates and dedupes the requested sections, keeping the
// caller's order.
func parseSections(in []ReportSection) ([]ReportSection, error) {
	if len(in) == 0 {
		return nil, &ValidationError{Field: "sections", Reason: "at least one section is required"}
	}
	seen := make(map[ReportSection]bool, len(in))
	out := make([]ReportSection, 0, len(in))
	for _, s := range in {
		switch s {
		case SectionFinancial, SectionHR, SectionPredictions, SectionInsights, SectionRecommendations:
		default:
			return nil, &ValidationError{Field: "sections", Reason: fmt.Sprintf("unknown section %q", s)}
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// CustomReport assembles the requested sections over one window and closes
// with an executive summary of what was included.
func (c *Composer) CustomReport(ctx context.Context, companyID uint, req ReportRequest) (CustomReport, error) {
	opts, err := req.Options.normalize()
	if err != nil {
		return CustomReport{}, err
	}
	sections, err := parseSections(req.Sections)
	if err != nil {
		return CustomReport{}, err
	}
	w, err := TrailingWindow(c.now(), opts.WindowMonths)
	if err != nil {
		return CustomReport{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultReportTitle
	}
	out := CustomReport{
		Title:       title,
		GeneratedAt: c.now(),
		Period:      w.Period(),
		Requested:   sections,
	}

	var overview *Overview
	loadOverview := func() (*Overview, error) {
		if overview == nil {
			o, err := c.Overview(ctx, companyID, opts)
			if err != nil {
				return nil, err
			}
			overview = &o
		}
		return overview, nil
	}

	for _, s := range sections {
		switch s {
		case SectionFinancial:
			fin, err := c.FinancialDashboard(ctx, companyID, opts)
			if err != nil {
				return CustomReport{}, err
			}
			out.Sections.Financial = &FinancialSection{
				Summary:    fin.Summary,
				KPIs:       fin.KPIs,
				Monthly:    fin.Monthly,
				Categories: fin.Categories,
			}
		case SectionHR:
			hr, err := c.HRDashboard(ctx, companyID, opts)
			if err != nil {
				return CustomReport{}, err
			}
			out.Sections.HR = &HRSection{
				Summary:       hr.Summary,
				Departments:   hr.Departments,
				TopPerformers: hr.TopPerformers,
			}
		case SectionPredictions:
			cash, err := c.Forecast(ctx, companyID, opts)
			if err != nil {
				return CustomReport{}, err
			}
			perf, err := c.Predict(ctx, companyID, PredictPerformance, opts)
			if err != nil {
				return CustomReport{}, err
			}
			out.Sections.Predictions = &PredictionsSection{CashFlow: cash, Performance: perf.Forecast}
		case SectionInsights:
			o, err := loadOverview()
			if err != nil {
				return CustomReport{}, err
			}
			out.Sections.Insights = o.Insights
			out.Sections.Alerts = o.Alerts
		case SectionRecommendations:
			o, err := loadOverview()
			if err != nil {
				return CustomReport{}, err
			}
			out.Sections.Recommendations = recommendations(o.Alerts, o.Insights)
		}
	}

	out.ExecutiveSummary = executiveSummary(out.Sections)
	return out, nil
}

// recommendations collects the alert messages and insight advice, once each.
func recommendations(alerts []Alert, insights []Insight) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, a := range alerts {
		add(a.Message)
	}
	for _, in := range insights {
		add(in.Recommendation)
	}
	if len(out) == 0 {
		out = append(out, defaultKPIAdvice)
	}
	return out
}

func executiveSummary(s ReportSections) []string {
	out := make([]string, 0, 4)
	if s.Financial != nil {
		f := s.Financial.Summary
		out = append(out, fmt.Sprintf("Ricavi %.2f, spese %.2f, utile netto %.2f (margine %.1f%%, crescita %.1f%%)",
			f.TotalRevenue, f.TotalExpenses, f.NetProfit, f.ProfitMargin, f.RevenueGrowth))
	}
	if s.HR != nil {
		h := s.HR.Summary
		out = append(out, fmt.Sprintf("%d dipendenti, %d valutati, punteggio medio %.1f",
			h.TotalEmployees, h.AssessedEmployees, h.AvgPerformanceScore))
	}
	if s.Predictions != nil {
		if p := s.Predictions.CashFlow.Points; len(p) > 0 {
			out = append(out, fmt.Sprintf("Previsione %s: ricavi %.2f, utile %.2f", p[0].Month, p[0].PredictedRevenue, p[0].PredictedProfit))
		} else {
			out = append(out, "Storico insufficiente per una previsione")
		}
	}
	if s.Insights != nil {
		out = append(out, fmt.Sprintf("%d avvisi e %d insight nel periodo", len(s.Alerts), len(s.Insights)))
	}
	if s.Recommendations != nil {
		out = append(out, fmt.Sprintf("%d raccomandazioni", len(s.Recommendations)))
	}
	return out
}
