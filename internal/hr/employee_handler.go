package hr

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/financial"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EmployeeRequest struct {
	FirstName  *string  `json:"first_name"`
	LastName   *string  `json:"last_name"`
	Email      *string  `json:"email"`
	Position   *string  `json:"position"`
	Department *string  `json:"department"`
	HireDate   *string  `json:"hire_date"` // YYYY-MM-DD
	Salary     *float64 `json:"salary"`
	IsActive   *bool    `json:"is_active"`
}

type EmployeeResponse struct {
	ID             uint     `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email"`
	Position       string   `json:"position"`
	Department     string   `json:"department"`
	HireDate       string   `json:"hire_date"`
	Salary         float64  `json:"salary"`
	IsActive       bool     `json:"is_active"`
	LastScore      *float64 `json:"last_score"`
	LastAssessedAt *string  `json:"last_assessed_at"`
}

type ListEmployeesResponse struct {
	Employees  []EmployeeResponse   `json:"employees"`
	Pagination financial.Pagination `json:"pagination"`
}

func toEmployeeResponse(e models.Employee, last *models.Assessment) EmployeeResponse {
	resp := EmployeeResponse{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Position:   e.Position,
		Department: e.Department,
		Salary:     e.Salary,
		IsActive:   e.IsActive,
	}
	if !e.HireDate.IsZero() {
		resp.HireDate = e.HireDate.Format("2006-01-02")
	}
	if last != nil {
		score := last.OverallScore
		at := last.CompletedAt.Format("2006-01-02")
		resp.LastScore = &score
		resp.LastAssessedAt = &at
	}
	return resp
}

func (r EmployeeRequest) apply(e *models.Employee) error {
	if r.FirstName != nil {
		e.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		e.LastName = strings.TrimSpace(*r.LastName)
	}
	if r.Email != nil {
		e.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Position != nil {
		e.Position = strings.TrimSpace(*r.Position)
	}
	if r.Department != nil {
		e.Department = strings.TrimSpace(*r.Department)
	}
	if r.HireDate != nil {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(*r.HireDate))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Data di assunzione non valida")
		}
		e.HireDate = d
	}
	if r.Salary != nil {
		e.Salary = *r.Salary
	}
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}

	if len(e.FirstName) < 2 || len(e.LastName) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "Nome e cognome sono obbligatori")
	}
	if len(e.Position) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "La posizione è obbligatoria")
	}
	if e.Email != "" {
		if _, err := mail.ParseAddress(e.Email); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Email non valida")
		}
	}
	if e.HireDate.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "La data di assunzione è obbligatoria")
	}
	if e.Salary < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Lo stipendio non può essere negativo")
	}
	return nil
}

func emailTaken(db *gorm.DB, companyID uint, email string, exceptID uint) bool {
	if email == "" {
		return false
	}
	var n int64
	db.Model(&models.Employee{}).
		Where("company_id = ? AND email = ? AND id <> ?", companyID, email, exceptID).
		Count(&n)
	return n > 0
}

// latestAssessments maps employee id to its most recent assessment.
func latestAssessments(db *gorm.DB, companyID uint, employeeIDs []uint) (map[uint]*models.Assessment, error) {
	out := make(map[uint]*models.Assessment, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return out, nil
	}

	var rows []models.Assessment
	if err := db.Select("id", "employee_id", "overall_score", "completed_at").
		Where("company_id = ? AND employee_id IN ?", companyID, employeeIDs).
		Order("completed_at DESC").Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if _, ok := out[rows[i].EmployeeID]; !ok {
			out[rows[i].EmployeeID] = &rows[i]
		}
	}
	return out, nil
}

// ----------------------------------------
// GET /api/hr/employees?page=1&limit=20&department=Vendite&position=dev
// ----------------------------------------
func ListEmployeesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 200 {
			limit = 20
		}

		dbq := db.Model(&models.Employee{}).Where("company_id = ?", companyID)
		if d := c.Query("department"); d != "" {
			dbq = dbq.Where("department = ?", d)
		}
		if p := strings.TrimSpace(c.Query("position")); p != "" {
			dbq = dbq.Where("LOWER(position) LIKE ?", "%"+strings.ToLower(p)+"%")
		}

		var total int64
		if err := dbq.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile contare i dipendenti")
		}

		var rows []models.Employee
		if err := dbq.Order("last_name ASC").Order("first_name ASC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile recuperare i dipendenti")
		}

		ids := make([]uint, 0, len(rows))
		for _, e := range rows {
			ids = append(ids, e.ID)
		}
		latest, err := latestAssessments(db, companyID, ids)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile recuperare gli assessment")
		}

		resp := ListEmployeesResponse{
			Employees: make([]EmployeeResponse, 0, len(rows)),
			Pagination: financial.Pagination{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: int((total + int64(limit) - 1) / int64(limit)),
			},
		}
		for _, e := range rows {
			resp.Employees = append(resp.Employees, toEmployeeResponse(e, latest[e.ID]))
		}
		return c.JSON(resp)
	}
}

// ----------------------------------------
// POST /api/hr/employees (admin, manager)
// ----------------------------------------
func CreateEmployeeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body EmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		emp := models.Employee{CompanyID: actor.CompanyID, IsActive: true}
		if err := body.apply(&emp); err != nil {
			return err
		}
		if emailTaken(db, actor.CompanyID, emp.Email, 0) {
			return fiber.NewError(fiber.StatusConflict, "Un dipendente con questa email esiste già")
		}

		if err := db.Create(&emp).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile creare il dipendente")
		}

		audit.Record(c, db, actor, audit.EntityEmployee, emp.ID, models.AuditActionCreate,
			fmt.Sprintf("Dipendente aggiunto: %s", emp.FullName()), nil, emp)

		return c.Status(fiber.StatusCreated).JSON(toEmployeeResponse(emp, nil))
	}
}

func findEmployee(db *gorm.DB, companyID uint, rawID string) (models.Employee, error) {
	var emp models.Employee
	err := db.Where("id = ? AND company_id = ?", rawID, companyID).First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emp, fiber.NewError(fiber.StatusNotFound, "Dipendente non trovato")
	}
	if err != nil {
		return emp, fiber.NewError(fiber.StatusInternalServerError, "Dipendente non disponibile")
	}
	return emp, nil
}

// ----------------------------------------
// PUT /api/hr/employees/:id (admin, manager)
// ----------------------------------------
func UpdateEmployeeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		emp, err := findEmployee(db, actor.CompanyID, c.Params("id"))
		if err != nil {
			return err
		}
		before := emp

		var body EmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		if err := body.apply(&emp); err != nil {
			return err
		}
		if emailTaken(db, actor.CompanyID, emp.Email, emp.ID) {
			return fiber.NewError(fiber.StatusConflict, "Un dipendente con questa email esiste già")
		}

		if err := db.Omit("Assessments").Save(&emp).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dipendente non aggiornato")
		}

		audit.Record(c, db, actor, audit.EntityEmployee, emp.ID, models.AuditActionUpdate,
			fmt.Sprintf("Dipendente aggiornato: %s", emp.FullName()), before, emp)

		return c.JSON(toEmployeeResponse(emp, nil))
	}
}
