package report

import (
	"errors"
	"fmt"
	"strconv"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/config"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/reports/financial.xlsx?period=12&series=transactions
func FinancialReportHandler(db *gorm.DB, composer *analytics.Composer, defaults config.Analytics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		opts := analytics.Options{
			WindowMonths:   defaults.WindowMonths,
			ForecastMonths: defaults.ForecastMonths,
			Series:         analytics.SeriesKind(c.Query("series")),
		}
		if s := c.Query("period"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "period non valido")
			}
			opts.WindowMonths = n
		}

		var company models.Company
		if err := db.Select("id", "name").First(&company, companyID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Azienda non trovata")
		}

		view, err := composer.FinancialDashboard(c.UserContext(), companyID, opts)
		var verr *analytics.ValidationError
		if errors.As(err, &verr) {
			return fiber.NewError(fiber.StatusBadRequest, "Parametro non valido: "+verr.Field)
		}
		if err != nil {
			logger.From(c).Error().Err(err).Msg("report dashboard failed")
			return fiber.NewError(fiber.StatusBadGateway, "Report non disponibile")
		}

		f, err := FinancialWorkbook(company.Name, view)
		if err != nil {
			logger.From(c).Error().Err(err).Msg("report workbook failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Report non generato")
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report non generato")
		}

		c.Set(fiber.HeaderContentType, xlsxMime)
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="report-finanziario-%s.xlsx"`, view.Period.To))
		return c.Send(buf.Bytes())
	}
}
