package analytics

import "fmt"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityPositive Severity = "positive"
)

type Alert struct {
	Rule     string   `json:"rule"`
	Type     Severity `json:"type"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

type Insight struct {
	Rule           string   `json:"rule"`
	Type           Severity `json:"type"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// facts is everything a rule may look at. Nil parts are unknown for the
// current dashboard and rules depending on them do not fire.
type facts struct {
	financial    *Summary
	hr           *HRSummary
	kpis         *OverviewKPIs
	revenueTrend Direction
	expenseTrend Direction
}

type alertRule struct {
	name  string
	when  func(f facts) bool
	alert func(f facts) Alert
}

type insightRule struct {
	name    string
	when    func(f facts) bool
	insight func(f facts) Insight
}

// Rules are independent: every rule that matches contributes.
var alertRules = []alertRule{
	{
		name: "low_profit_margin",
		when: func(f facts) bool { return f.financial != nil && f.financial.ProfitMargin < 10 },
		alert: func(f facts) Alert {
			return Alert{
				Type:     SeverityWarning,
				Category: "financial",
				Message:  fmt.Sprintf("Margine di profitto basso (%.1f%%): valuta la riduzione dei costi", f.financial.ProfitMargin),
			}
		},
	},
	{
		name: "net_loss",
		when: func(f facts) bool { return f.financial != nil && f.financial.NetProfit < 0 },
		alert: func(f facts) Alert {
			return Alert{
				Type:     SeverityCritical,
				Category: "financial",
				Message:  fmt.Sprintf("Perdita netta nel periodo: %.2f", f.financial.NetProfit),
			}
		},
	},
	{
		name: "revenue_declining",
		when: func(f facts) bool { return f.revenueTrend == DirectionDown },
		alert: func(f facts) Alert {
			return Alert{
				Type:     SeverityWarning,
				Category: "financial",
				Message:  "I ricavi sono in calo rispetto alla prima parte del periodo",
			}
		},
	},
	{
		name: "expenses_rising",
		when: func(f facts) bool { return f.expenseTrend == DirectionUp },
		alert: func(f facts) Alert {
			return Alert{
				Type:     SeverityInfo,
				Category: "financial",
				Message:  "Le spese sono in aumento",
			}
		},
	},
	{
		name: "low_assessment_coverage",
		when: func(f facts) bool {
			return f.hr != nil && f.hr.TotalEmployees > 0 && f.hr.AssessmentCoverage < 50
		},
		alert: func(f facts) Alert {
			return Alert{
				Type:     SeverityInfo,
				Category: "hr",
				Message:  fmt.Sprintf("Solo il %.1f%% dei dipendenti ha completato una valutazione", f.hr.AssessmentCoverage),
			}
		},
	},
}

var insightRules = []insightRule{
	{
		name: "high_productivity",
		when: func(f facts) bool { return f.kpis != nil && f.kpis.ProfitPerEmployee > 50000 },
		insight: func(f facts) Insight {
			return Insight{
				Type:           SeverityPositive,
				Category:       "productivity",
				Title:          "Alta produttività",
				Message:        fmt.Sprintf("Profitto per dipendente di %.0f", f.kpis.ProfitPerEmployee),
				Recommendation: "Considera investimenti nella crescita del team",
			}
		},
	},
	{
		name: "scaling_opportunity",
		when: func(f facts) bool {
			return f.financial != nil && f.hr != nil &&
				f.financial.RevenueGrowth > 10 && f.hr.TotalEmployees < 30
		},
		insight: func(f facts) Insight {
			return Insight{
				Type:           SeverityInfo,
				Category:       "growth",
				Title:          "Opportunità di crescita",
				Message:        fmt.Sprintf("Ricavi in crescita del %.1f%% con un team di %d persone", f.financial.RevenueGrowth, f.hr.TotalEmployees),
				Recommendation: "Pianifica nuove assunzioni per sostenere la crescita",
			}
		},
	},
	{
		name: "performance_alignment",
		when: func(f facts) bool {
			return f.financial != nil && f.hr != nil &&
				f.hr.AvgPerformanceScore > 85 && f.financial.ProfitMargin > 25
		},
		insight: func(f facts) Insight {
			return Insight{
				Type:     SeverityPositive,
				Category: "alignment",
				Title:    "Performance e risultati allineati",
				Message:  "Le alte performance del team si riflettono nei margini",
			}
		},
	},
	{
		name: "healthy_margin",
		when: func(f facts) bool { return f.financial != nil && f.financial.ProfitMargin >= 20 },
		insight: func(f facts) Insight {
			return Insight{
				Type:     SeverityPositive,
				Category: "financial",
				Title:    "Margine solido",
				Message:  fmt.Sprintf("Margine di profitto del %.1f%%", f.financial.ProfitMargin),
			}
		},
	},
	{
		name: "revenue_growing",
		when: func(f facts) bool { return f.revenueTrend == DirectionUp },
		insight: func(f facts) Insight {
			return Insight{
				Type:           SeverityPositive,
				Category:       "financial",
				Title:          "Ricavi in crescita",
				Message:        "La tendenza dei ricavi è positiva",
				Recommendation: "Mantieni le strategie commerciali attuali",
			}
		},
	},
	{
		name: "cost_control",
		when: func(f facts) bool { return f.expenseTrend == DirectionUp && f.revenueTrend != DirectionUp },
		insight: func(f facts) Insight {
			return Insight{
				Type:           SeverityWarning,
				Category:       "financial",
				Title:          "Controllo dei costi",
				Message:        "Le spese crescono più dei ricavi",
				Recommendation: "Rivedi le categorie di spesa principali",
			}
		},
	},
}

func evaluateAlerts(f facts) []Alert {
	out := make([]Alert, 0)
	for _, r := range alertRules {
		if r.when(f) {
			a := r.alert(f)
			a.Rule = r.name
			out = append(out, a)
		}
	}
	return out
}

func evaluateInsights(f facts) []Insight {
	out := make([]Insight, 0)
	for _, r := range insightRules {
		if r.when(f) {
			in := r.insight(f)
			in.Rule = r.name
			out = append(out, in)
		}
	}
	return out
}
