package analytics

import (
	"sort"
	"time"
)

// Employee is the flattened HR row handed to the composer.
type Employee struct {
	ID         uint
	Name       string
	Department string
	Position   string
	Salary     float64
	HireDate   time.Time
}

// AssessmentResult is one scored assessment.
type AssessmentResult struct {
	EmployeeID  uint
	TestType    string
	Score       float64
	CompletedAt time.Time
}

type HRSummary struct {
	TotalEmployees      int     `json:"total_employees"`
	AssessedEmployees   int     `json:"assessed_employees"`
	AssessmentCoverage  float64 `json:"assessment_coverage"`
	AvgPerformanceScore float64 `json:"avg_performance_score"`
	TotalAssessments    int     `json:"total_assessments"`
	AverageSalary       float64 `json:"average_salary"`
}

type Performer struct {
	EmployeeID uint    `json:"employee_id"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	Position   string  `json:"position"`
	Score      float64 `json:"score"`
}

const topPerformersLimit = 5

// latestScores keeps the most recent assessment score per employee. Results
// for unknown employees are ignored.
func latestScores(employees []Employee, assessments []AssessmentResult) map[uint]AssessmentResult {
	known := make(map[uint]bool, len(employees))
	for _, e := range employees {
		known[e.ID] = true
	}

	latest := make(map[uint]AssessmentResult)
	for _, a := range assessments {
		if !known[a.EmployeeID] {
			continue
		}
		cur, ok := latest[a.EmployeeID]
		if !ok || a.CompletedAt.After(cur.CompletedAt) {
			latest[a.EmployeeID] = a
		}
	}
	return latest
}

// SummarizeHR computes headcount and assessment coverage. The performance
// score averages the latest assessment of each assessed employee.
func SummarizeHR(employees []Employee, assessments []AssessmentResult) HRSummary {
	latest := latestScores(employees, assessments)

	var scoreSum, salarySum float64
	for _, a := range latest {
		scoreSum += a.Score
	}
	for _, e := range employees {
		salarySum += e.Salary
	}

	return HRSummary{
		TotalEmployees:      len(employees),
		AssessedEmployees:   len(latest),
		AssessmentCoverage:  round2(ratio(float64(len(latest)), float64(len(employees))) * 100),
		AvgPerformanceScore: round2(ratio(scoreSum, float64(len(latest)))),
		TotalAssessments:    len(assessments),
		AverageSalary:       round2(ratio(salarySum, float64(len(employees)))),
	}
}

// TopPerformers ranks employees by their latest score, best first. Ties keep
// the employee order of the input.
func TopPerformers(employees []Employee, assessments []AssessmentResult, limit int) []Performer {
	latest := latestScores(employees, assessments)

	out := make([]Performer, 0, len(latest))
	for _, e := range employees {
		a, ok := latest[e.ID]
		if !ok {
			continue
		}
		out = append(out, Performer{
			EmployeeID: e.ID,
			Name:       e.Name,
			Department: e.Department,
			Position:   e.Position,
			Score:      round2(a.Score),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PerformanceSeries averages assessment scores per calendar month inside w.
func PerformanceSeries(assessments []AssessmentResult, w Window) []Point {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, a := range assessments {
		if !w.Contains(a.CompletedAt) {
			continue
		}
		m := monthStart(a.CompletedAt)
		sums[m] += a.Score
		counts[m]++
	}
	return sortedPoints(sums, counts)
}

// HeadcountSeries counts employees hired on or before the end of each month
// of w that saw a hire.
func HeadcountSeries(employees []Employee, w Window) []Point {
	hires := make(map[time.Time]bool)
	for _, e := range employees {
		if w.Contains(e.HireDate) {
			hires[monthStart(e.HireDate)] = true
		}
	}

	out := make([]Point, 0, len(hires))
	for m := range hires {
		end := m.AddDate(0, 1, 0)
		var n int
		for _, e := range employees {
			if e.HireDate.Before(end) {
				n++
			}
		}
		out = append(out, Point{Month: m, Value: float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func sortedPoints(sums map[time.Time]float64, counts map[time.Time]int) []Point {
	out := make([]Point, 0, len(sums))
	for m, s := range sums {
		out = append(out, Point{Month: m, Value: round2(s / float64(counts[m]))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
