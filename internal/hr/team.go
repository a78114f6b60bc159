package hr

import (
	"math"
	"sort"
	"strconv"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/models"
)

const (
	strengthThreshold    = 80.0
	improvementThreshold = 70.0
)

type SkillArea struct {
	Skill         models.TestType `json:"skill"`
	AverageScore  float64         `json:"average_score"`
	EmployeeCount int             `json:"employee_count"`
}

type TeamMember struct {
	EmployeeID      uint    `json:"employee_id"`
	Name            string  `json:"name"`
	Position        string  `json:"position"`
	Department      string  `json:"department"`
	AverageScore    float64 `json:"average_score"`
	AssessmentCount int     `json:"assessment_count"`
}

type TeamInsights struct {
	TotalMembers       int                         `json:"total_members"`
	AssessmentCoverage float64                     `json:"assessment_coverage"`
	StrengthAreas      []SkillArea                 `json:"strength_areas"`
	ImprovementAreas   []SkillArea                 `json:"improvement_areas"`
	SkillsDistribution map[models.TestType]float64 `json:"skills_distribution"`
	TopPerformers      []TeamMember                `json:"top_performers"`
}

// BuildTeamInsights averages every assessment per test type and per employee.
// Unlike the dashboard, it uses the full history rather than the latest score.
func BuildTeamInsights(employees []models.Employee, assessments []models.Assessment) TeamInsights {
	out := TeamInsights{
		TotalMembers:       len(employees),
		StrengthAreas:      []SkillArea{},
		ImprovementAreas:   []SkillArea{},
		SkillsDistribution: map[models.TestType]float64{},
		TopPerformers:      []TeamMember{},
	}

	members := make(map[string]models.Employee, len(employees))
	for _, e := range employees {
		members[employeeKey(e.ID)] = e
	}
	relevant := make([]models.Assessment, 0, len(assessments))
	for _, a := range assessments {
		if _, ok := members[employeeKey(a.EmployeeID)]; ok {
			relevant = append(relevant, a)
		}
	}

	score := func(a models.Assessment) float64 { return a.OverallScore }

	bySkill := analytics.GroupBy(relevant, func(a models.Assessment) string { return string(a.TestType) }, score)
	for _, g := range bySkill {
		avg := math.Round(g.Average)
		skill := models.TestType(g.Key)
		out.SkillsDistribution[skill] = avg

		area := SkillArea{Skill: skill, AverageScore: avg, EmployeeCount: g.Count}
		switch {
		case g.Average >= strengthThreshold:
			out.StrengthAreas = append(out.StrengthAreas, area)
		case g.Average < improvementThreshold:
			out.ImprovementAreas = append(out.ImprovementAreas, area)
		}
	}

	byEmployee := analytics.GroupBy(relevant, func(a models.Assessment) string { return employeeKey(a.EmployeeID) }, score)
	for _, g := range byEmployee {
		e := members[g.Key]
		out.TopPerformers = append(out.TopPerformers, TeamMember{
			EmployeeID:      e.ID,
			Name:            e.FullName(),
			Position:        e.Position,
			Department:      e.Department,
			AverageScore:    math.Round(g.Average),
			AssessmentCount: g.Count,
		})
	}
	sort.SliceStable(out.TopPerformers, func(i, j int) bool {
		return out.TopPerformers[i].AverageScore > out.TopPerformers[j].AverageScore
	})
	if len(out.TopPerformers) > 5 {
		out.TopPerformers = out.TopPerformers[:5]
	}

	if len(employees) > 0 {
		out.AssessmentCoverage = math.Round(float64(len(byEmployee)) / float64(len(employees)) * 100)
	}
	return out
}

func employeeKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
