package financial

import (
	"fmt"
	"strings"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// POST /api/financial/import (multipart, field "file")
func ImportRecordsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File mancante")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Sono accettati solo file .xlsx")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile aprire il file")
		}
		defer file.Close()

		rows, problems, err := ParseRecordsXLSX(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File Excel non leggibile: "+err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Nessuna riga valida nel file")
		}

		records := make([]models.FinancialRecord, 0, len(rows))
		for _, r := range rows {
			records = append(records, models.FinancialRecord{
				CompanyID:   actor.CompanyID,
				Date:        r.Date,
				Revenue:     r.Revenue,
				Expenses:    r.Expenses,
				Category:    r.Category,
				Description: r.Description,
				CreatedBy:   actor.UserID,
			})
		}

		if err := db.CreateInBatches(&records, 100).Error; err != nil {
			logger.From(c).Error().Err(err).Int("rows", len(records)).Msg("financial import failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Importazione non riuscita")
		}

		for _, rec := range records {
			audit.Record(c, db, actor, audit.EntityFinancialRecord, rec.ID, models.AuditActionCreate,
				fmt.Sprintf("Record importato da %s", fileHeader.Filename), nil, rec)
		}

		logger.From(c).Info().Int("imported", len(records)).Int("skipped", len(problems)).Msg("financial import")

		return c.Status(fiber.StatusCreated).JSON(ImportResponse{
			Imported: len(records),
			Skipped:  len(problems),
			Errors:   problems,
		})
	}
}
