package hr

import (
	"fmt"
	"strings"
	"time"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateAssessmentRequest struct {
	EmployeeID uint                      `json:"employee_id"`
	TestType   models.TestType           `json:"test_type"`
	Responses  []models.AssessmentAnswer `json:"responses"`
	Notes      string                    `json:"notes"`
}

type AssessmentResponse struct {
	ID           uint            `json:"id"`
	EmployeeID   uint            `json:"employee_id"`
	TestType     models.TestType `json:"test_type"`
	OverallScore float64         `json:"overall_score"`
	Insights     []string        `json:"insights"`
	Notes        string          `json:"notes"`
	CompletedAt  string          `json:"completed_at"`
	ConductedBy  uint            `json:"conducted_by"`
}

type EmployeeAssessmentsResponse struct {
	Employee struct {
		ID         uint   `json:"id"`
		Name       string `json:"name"`
		Position   string `json:"position"`
		Department string `json:"department"`
	} `json:"employee"`
	Assessments []AssessmentResponse `json:"assessments"`
}

// answers are omitted from responses
func toAssessmentResponse(a models.Assessment) AssessmentResponse {
	insights := []string(a.Insights)
	if insights == nil {
		insights = []string{}
	}
	return AssessmentResponse{
		ID:           a.ID,
		EmployeeID:   a.EmployeeID,
		TestType:     a.TestType,
		OverallScore: a.OverallScore,
		Insights:     insights,
		Notes:        a.Notes,
		CompletedAt:  a.CompletedAt.Format(time.RFC3339),
		ConductedBy:  a.ConductedBy,
	}
}

// GET /api/hr/assessments/types
func AssessmentTypesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"test_types": TestTypes()})
	}
}

// POST /api/hr/assessments (admin, manager)
func CreateAssessmentHandler(db *gorm.DB, scorer Scorer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body CreateAssessmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		test, ok := LookupTestType(body.TestType)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Tipo test non valido")
		}
		if len(body.Responses) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le risposte sono obbligatorie")
		}
		for i, r := range body.Responses {
			if strings.TrimSpace(r.QuestionID) == "" || strings.TrimSpace(r.Answer) == "" {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Risposta %d incompleta", i+1))
			}
		}

		emp, err := findEmployee(db, actor.CompanyID, fmt.Sprint(body.EmployeeID))
		if err != nil {
			return err
		}

		score, insights := scorer.Score(test, body.Responses)
		if clamped := clampScore(score); clamped != score {
			logger.From(c).Warn().Float64("score", score).Str("test_type", string(test.ID)).Msg("scorer result out of range, clamped")
			score = clamped
		}

		assessment := models.Assessment{
			CompanyID:    actor.CompanyID,
			EmployeeID:   emp.ID,
			TestType:     test.ID,
			Responses:    body.Responses,
			OverallScore: score,
			Insights:     insights,
			Notes:        body.Notes,
			CompletedAt:  time.Now().UTC(),
			ConductedBy:  actor.UserID,
		}
		if err := db.Create(&assessment).Error; err != nil {
			logger.From(c).Error().Err(err).Uint("employee_id", emp.ID).Msg("assessment create failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile creare l'assessment")
		}

		logger.From(c).Info().
			Uint("employee_id", emp.ID).
			Str("test_type", string(test.ID)).
			Float64("score", score).
			Msg("assessment completed")

		return c.Status(fiber.StatusCreated).JSON(toAssessmentResponse(assessment))
	}
}

// GET /api/hr/employees/:id/assessments
func EmployeeAssessmentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		emp, err := findEmployee(db, companyID, c.Params("id"))
		if err != nil {
			return err
		}

		var rows []models.Assessment
		if err := db.Omit("responses").
			Where("company_id = ? AND employee_id = ?", companyID, emp.ID).
			Order("completed_at DESC").Order("id DESC").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile recuperare gli assessment")
		}

		var resp EmployeeAssessmentsResponse
		resp.Employee.ID = emp.ID
		resp.Employee.Name = emp.FullName()
		resp.Employee.Position = emp.Position
		resp.Employee.Department = emp.Department
		resp.Assessments = make([]AssessmentResponse, 0, len(rows))
		for _, a := range rows {
			resp.Assessments = append(resp.Assessments, toAssessmentResponse(a))
		}
		return c.JSON(resp)
	}
}

// GET /api/hr/insights/team?department=Vendite
func TeamInsightsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		empQ := db.Where("company_id = ? AND is_active = ?", companyID, true)
		if d := c.Query("department"); d != "" {
			empQ = empQ.Where("department = ?", d)
		}
		var employees []models.Employee
		if err := empQ.Find(&employees).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile recuperare i dipendenti")
		}

		var assessments []models.Assessment
		if err := db.Omit("responses").
			Where("company_id = ?", companyID).
			Find(&assessments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile recuperare gli assessment")
		}

		return c.JSON(fiber.Map{"team_insights": BuildTeamInsights(employees, assessments)})
	}
}
