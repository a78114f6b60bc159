package financial

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type RecordRequest struct {
	Date        *string  `json:"date"` // YYYY-MM-DD, empty means today
	Revenue     *float64 `json:"revenue"`
	Expenses    *float64 `json:"expenses"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
}

type RecordResponse struct {
	ID          uint    `json:"id"`
	Date        string  `json:"date"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	Profit      float64 `json:"profit"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	CreatedBy   uint    `json:"created_by"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type ListRecordsResponse struct {
	Data       []RecordResponse `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

func toRecordResponse(r models.FinancialRecord) RecordResponse {
	return RecordResponse{
		ID:          r.ID,
		Date:        r.Date.Format(dateLayout),
		Revenue:     r.Revenue,
		Expenses:    r.Expenses,
		Profit:      r.Revenue - r.Expenses,
		Category:    r.Category,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
	}
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD date; empty input means today.
func ParseDate(s *string) (time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return today(), nil
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Formato data non valido, usare 'YYYY-MM-DD'")
	}
	return d, nil
}

func validateAmounts(revenue, expenses float64) error {
	if revenue < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Il ricavo non può essere negativo")
	}
	if expenses < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "La spesa non può essere negativa")
	}
	return nil
}

// -------------------------------------------------
// GET /api/financial/data?page=1&limit=20&start_date=2025-01-01&end_date=2025-12-31&category=sales
// -------------------------------------------------
func ListRecordsHandler(db *gorm.DB) fiber.Handler {
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

		dbq := db.Model(&models.FinancialRecord{}).Where("company_id = ?", companyID)

		if s := c.Query("start_date"); s != "" {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start_date non valida")
			}
			dbq = dbq.Where("date >= ?", d)
		}
		if s := c.Query("end_date"); s != "" {
			d, err := time.Parse(dateLayout, s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end_date non valida")
			}
			dbq = dbq.Where("date <= ?", d)
		}
		if cat := c.Query("category"); cat != "" {
			dbq = dbq.Where("category = ?", cat)
		}

		var total int64
		if err := dbq.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile contare i record")
		}

		var rows []models.FinancialRecord
		if err := dbq.Order("date DESC").Order("id DESC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile elencare i record")
		}

		data := make([]RecordResponse, 0, len(rows))
		for _, r := range rows {
			data = append(data, toRecordResponse(r))
		}

		return c.JSON(ListRecordsResponse{
			Data: data,
			Pagination: Pagination{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: int((total + int64(limit) - 1) / int64(limit)),
			},
		})
	}
}

// -------------------------------------------------
// POST /api/financial/data
// -------------------------------------------------
func CreateRecordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body RecordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		if body.Revenue == nil && body.Expenses == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Indicare ricavo o spesa")
		}

		date, err := ParseDate(body.Date)
		if err != nil {
			return err
		}

		rec := models.FinancialRecord{
			CompanyID: actor.CompanyID,
			Date:      date,
			CreatedBy: actor.UserID,
		}
		if body.Revenue != nil {
			rec.Revenue = *body.Revenue
		}
		if body.Expenses != nil {
			rec.Expenses = *body.Expenses
		}
		if body.Category != nil {
			rec.Category = strings.TrimSpace(*body.Category)
		}
		if body.Description != nil {
			rec.Description = *body.Description
		}
		if err := validateAmounts(rec.Revenue, rec.Expenses); err != nil {
			return err
		}

		if err := db.Create(&rec).Error; err != nil {
			logger.From(c).Error().Err(err).Msg("financial record create failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Record non creato")
		}

		audit.Record(c, db, actor, audit.EntityFinancialRecord, rec.ID, models.AuditActionCreate,
			fmt.Sprintf("Record finanziario aggiunto: %s ricavi %.2f spese %.2f", rec.Date.Format(dateLayout), rec.Revenue, rec.Expenses),
			nil, rec)

		return c.Status(fiber.StatusCreated).JSON(toRecordResponse(rec))
	}
}

func findRecord(db *gorm.DB, c *fiber.Ctx, companyID uint) (models.FinancialRecord, error) {
	var rec models.FinancialRecord
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return rec, fiber.NewError(fiber.StatusBadRequest, "ID non valido")
	}
	err = db.Where("id = ? AND company_id = ?", id, companyID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fiber.NewError(fiber.StatusNotFound, "Record non trovato")
	}
	if err != nil {
		return rec, fiber.NewError(fiber.StatusInternalServerError, "Record non disponibile")
	}
	return rec, nil
}

// -------------------------------------------------
// PUT /api/financial/data/:id
// -------------------------------------------------
func UpdateRecordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		rec, err := findRecord(db, c, actor.CompanyID)
		if err != nil {
			return err
		}
		before := rec

		var body RecordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		if body.Date != nil {
			d, err := ParseDate(body.Date)
			if err != nil {
				return err
			}
			rec.Date = d
		}
		if body.Revenue != nil {
			rec.Revenue = *body.Revenue
		}
		if body.Expenses != nil {
			rec.Expenses = *body.Expenses
		}
		if body.Category != nil {
			rec.Category = strings.TrimSpace(*body.Category)
		}
		if body.Description != nil {
			rec.Description = *body.Description
		}
		if err := validateAmounts(rec.Revenue, rec.Expenses); err != nil {
			return err
		}

		if err := db.Save(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record non aggiornato")
		}

		audit.Record(c, db, actor, audit.EntityFinancialRecord, rec.ID, models.AuditActionUpdate,
			fmt.Sprintf("Record finanziario aggiornato: %s", rec.Date.Format(dateLayout)),
			before, rec)

		return c.JSON(toRecordResponse(rec))
	}
}

// -------------------------------------------------
// DELETE /api/financial/data/:id
// -------------------------------------------------
func DeleteRecordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		rec, err := findRecord(db, c, actor.CompanyID)
		if err != nil {
			return err
		}

		if err := db.Delete(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record non eliminato")
		}

		audit.Record(c, db, actor, audit.EntityFinancialRecord, rec.ID, models.AuditActionDelete,
			fmt.Sprintf("Record finanziario eliminato: %s", rec.Date.Format(dateLayout)),
			rec, nil)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
