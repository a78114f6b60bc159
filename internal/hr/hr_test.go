package hr

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"doflow-backend/internal/database"
	"doflow-backend/internal/models"
	"doflow-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHRApp(t *testing.T) (*fiber.App, *gorm.DB, uint) {
	t.Helper()
	db := database.OpenTest(t)
	actor := testutil.SeedCompany(t, db, "Alfa Srl")

	app := testutil.NewApp(actor)
	app.Get("/employees", ListEmployeesHandler(db))
	app.Post("/employees", CreateEmployeeHandler(db))
	app.Put("/employees/:id", UpdateEmployeeHandler(db))
	app.Get("/employees/:id/assessments", EmployeeAssessmentsHandler(db))
	app.Get("/assessments/types", AssessmentTypesHandler())
	app.Post("/assessments", CreateAssessmentHandler(db, CompletionScorer{}))
	app.Get("/insights/team", TeamInsightsHandler(db))
	return app, db, actor.CompanyID
}

func answers(n int) []models.AssessmentAnswer {
	out := make([]models.AssessmentAnswer, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.AssessmentAnswer{QuestionID: fmt.Sprintf("q%d", i+1), Answer: "b"})
	}
	return out
}

func TestCompletionScorer(t *testing.T) {
	cognitive, ok := LookupTestType(models.TestCognitive)
	require.True(t, ok)

	score, insights := CompletionScorer{}.Score(cognitive, answers(25))
	require.Equal(t, 100.0, score)
	require.Len(t, insights, 3)

	score, insights = CompletionScorer{}.Score(cognitive, answers(30))
	require.Equal(t, 100.0, score)

	score, _ = CompletionScorer{}.Score(cognitive, answers(15))
	require.Equal(t, 60.0, score)

	dup := append(answers(5), answers(5)...)
	score, insights = CompletionScorer{}.Score(cognitive, dup)
	require.Equal(t, 20.0, score)
	require.Len(t, insights, 1)

	again, _ := CompletionScorer{}.Score(cognitive, answers(15))
	require.Equal(t, 60.0, again)
}

func TestTestTypes(t *testing.T) {
	types := TestTypes()
	require.Len(t, types, 5)
	require.Equal(t, models.TestCognitive, types[0].ID)
	require.Equal(t, 25, types[0].Questions)

	_, ok := LookupTestType("astrology")
	require.False(t, ok)
}

func TestEmployeesAndAssessments(t *testing.T) {
	app, db, companyID := newHRApp(t)

	var emp EmployeeResponse
	status := testutil.Do(t, app, http.MethodPost, "/employees", map[string]any{
		"first_name": "Luca", "last_name": "Verdi", "email": "luca@example.com",
		"position": "Sviluppatore", "department": "IT", "hire_date": "2023-02-01", "salary": 42000,
	}, &emp)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "2023-02-01", emp.HireDate)

	status = testutil.Do(t, app, http.MethodPost, "/employees", map[string]any{
		"first_name": "Luca", "last_name": "Bis", "email": "LUCA@example.com",
		"position": "Tester", "hire_date": "2023-02-01",
	}, nil)
	require.Equal(t, http.StatusConflict, status)

	status = testutil.Do(t, app, http.MethodPost, "/employees", map[string]any{
		"first_name": "Sara", "last_name": "Neri", "position": "Analista",
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var created AssessmentResponse
	status = testutil.Do(t, app, http.MethodPost, "/assessments", map[string]any{
		"employee_id": emp.ID, "test_type": "communication", "responses": answers(15),
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 100.0, created.OverallScore)
	require.NotEmpty(t, created.Insights)

	status = testutil.Do(t, app, http.MethodPost, "/assessments", map[string]any{
		"employee_id": emp.ID, "test_type": "astrology", "responses": answers(3),
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status = testutil.Do(t, app, http.MethodPost, "/assessments", map[string]any{
		"employee_id": 9999, "test_type": "technical", "responses": answers(3),
	}, nil)
	require.Equal(t, http.StatusNotFound, status)

	var history EmployeeAssessmentsResponse
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, fmt.Sprintf("/employees/%d/assessments", emp.ID), nil, &history))
	require.Equal(t, "Luca Verdi", history.Employee.Name)
	require.Len(t, history.Assessments, 1)

	var list ListEmployeesResponse
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/employees?position=svilup", nil, &list))
	require.Len(t, list.Employees, 1)
	require.NotNil(t, list.Employees[0].LastScore)
	require.Equal(t, 100.0, *list.Employees[0].LastScore)

	var updated EmployeeResponse
	status = testutil.Do(t, app, http.MethodPut, fmt.Sprintf("/employees/%d", emp.ID), map[string]any{"department": "R&D"}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "R&D", updated.Department)

	var logs int64
	db.Model(&models.AuditLog{}).Where("company_id = ? AND entity_type = ?", companyID, "employee").Count(&logs)
	require.EqualValues(t, 2, logs)
}

type fixedScorer float64

func (f fixedScorer) Score(TestTypeInfo, []models.AssessmentAnswer) (float64, []string) {
	return float64(f), []string{"fisso"}
}

func TestAssessmentScoreIsClamped(t *testing.T) {
	db := database.OpenTest(t)
	actor := testutil.SeedCompany(t, db, "Alfa Srl")
	emp := models.Employee{CompanyID: actor.CompanyID, FirstName: "Luca", LastName: "Verdi", Position: "Tester", HireDate: time.Now().UTC(), IsActive: true}
	require.NoError(t, db.Create(&emp).Error)

	for _, tc := range []struct {
		raw  float64
		want float64
	}{
		{raw: 150, want: 100},
		{raw: -5, want: 0},
		{raw: 72.5, want: 72.5},
	} {
		app := testutil.NewApp(actor)
		app.Post("/assessments", CreateAssessmentHandler(db, fixedScorer(tc.raw)))

		var got AssessmentResponse
		status := testutil.Do(t, app, http.MethodPost, "/assessments", map[string]any{
			"employee_id": emp.ID, "test_type": "technical", "responses": answers(3),
		}, &got)
		require.Equal(t, http.StatusCreated, status)
		require.Equal(t, tc.want, got.OverallScore)

		var stored models.Assessment
		require.NoError(t, db.First(&stored, got.ID).Error)
		require.Equal(t, tc.want, stored.OverallScore)
	}
}

func TestBuildTeamInsights(t *testing.T) {
	employees := []models.Employee{
		{ID: 1, FirstName: "Anna", LastName: "Rossi", Department: "IT"},
		{ID: 2, FirstName: "Bruno", LastName: "Bianchi", Department: "IT"},
		{ID: 3, FirstName: "Carla", LastName: "Neri", Department: "IT"},
	}
	at := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	assessments := []models.Assessment{
		{EmployeeID: 1, TestType: models.TestTechnical, OverallScore: 90, CompletedAt: at},
		{EmployeeID: 2, TestType: models.TestTechnical, OverallScore: 80, CompletedAt: at},
		{EmployeeID: 1, TestType: models.TestLeadership, OverallScore: 60, CompletedAt: at},
		{EmployeeID: 99, TestType: models.TestLeadership, OverallScore: 10, CompletedAt: at},
	}

	got := BuildTeamInsights(employees, assessments)
	require.Equal(t, 3, got.TotalMembers)
	require.Equal(t, 67.0, got.AssessmentCoverage)
	require.Equal(t, []SkillArea{{Skill: models.TestTechnical, AverageScore: 85, EmployeeCount: 2}}, got.StrengthAreas)
	require.Equal(t, []SkillArea{{Skill: models.TestLeadership, AverageScore: 60, EmployeeCount: 1}}, got.ImprovementAreas)
	require.Len(t, got.TopPerformers, 2)
	require.Equal(t, "Bruno Bianchi", got.TopPerformers[0].Name)
	require.Equal(t, 80.0, got.TopPerformers[0].AverageScore)
	require.Equal(t, 75.0, got.TopPerformers[1].AverageScore)
}
