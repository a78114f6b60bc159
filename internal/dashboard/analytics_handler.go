package dashboard

import (
	"errors"
	"strconv"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/config"
	"doflow-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the analytics endpoints from a shared composer.
type Handlers struct {
	composer *analytics.Composer
	defaults config.Analytics
}

func NewHandlers(composer *analytics.Composer, defaults config.Analytics) *Handlers {
	return &Handlers{composer: composer, defaults: defaults}
}

// toHTTPError maps analytics failures onto status codes.
func toHTTPError(c *fiber.Ctx, err error) error {
	var verr *analytics.ValidationError
	if errors.As(err, &verr) {
		return fiber.NewError(fiber.StatusBadRequest, "Parametro non valido: "+verr.Field)
	}

	var uerr *analytics.DataUnavailableError
	if errors.As(err, &uerr) {
		logger.From(c).Error().Err(uerr.Err).Str("source", uerr.Source).Msg("analytics fetch failed")
		return fiber.NewError(fiber.StatusBadGateway, "Dati non disponibili, riprova più tardi")
	}

	logger.From(c).Error().Err(err).Msg("analytics failed")
	return fiber.NewError(fiber.StatusInternalServerError, "Errore interno del server")
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" deve essere un numero intero")
	}
	return n, nil
}

// options reads period (window months), months (forecast) and series.
func (h *Handlers) options(c *fiber.Ctx) (analytics.Options, error) {
	opts := analytics.Options{
		WindowMonths:   h.defaults.WindowMonths,
		ForecastMonths: h.defaults.ForecastMonths,
		Series:         analytics.SeriesKind(c.Query("series")),
	}

	var err error
	if opts.WindowMonths, err = queryInt(c, "period", opts.WindowMonths); err != nil {
		return opts, err
	}
	if opts.ForecastMonths, err = queryInt(c, "months", opts.ForecastMonths); err != nil {
		return opts, err
	}
	return opts, nil
}

// GET /api/financial/dashboard?period=12&series=financial_records
func (h *Handlers) FinancialDashboard(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}
	opts, err := h.options(c)
	if err != nil {
		return err
	}

	view, err := h.composer.FinancialDashboard(c.UserContext(), companyID, opts)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(view)
}

// GET /api/financial/forecast?months=6
func (h *Handlers) Forecast(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}
	opts, err := h.options(c)
	if err != nil {
		return err
	}

	forecast, err := h.composer.Forecast(c.UserContext(), companyID, opts)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(forecast)
}

// GET /api/hr/dashboard
func (h *Handlers) HRDashboard(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}
	opts, err := h.options(c)
	if err != nil {
		return err
	}

	view, err := h.composer.HRDashboard(c.UserContext(), companyID, opts)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(view)
}

// GET /api/analytics/overview
func (h *Handlers) Overview(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}
	opts, err := h.options(c)
	if err != nil {
		return err
	}

	view, err := h.composer.Overview(c.UserContext(), companyID, opts)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(view)
}

// GET /api/analytics/predictions?type=revenue&months=6
func (h *Handlers) Predictions(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}
	opts, err := h.options(c)
	if err != nil {
		return err
	}

	kind := analytics.PredictionKind(c.Query("type", string(analytics.PredictRevenue)))
	pred, err := h.composer.Predict(c.UserContext(), companyID, kind, opts)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(pred)
}

// GET /api/analytics/kpi/:type?period=12
func (h *Handlers) KPIAnalysis(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}
	opts, err := h.options(c)
	if err != nil {
		return err
	}

	analysis, err := h.composer.KPIAnalysis(c.UserContext(), companyID, analytics.KPIKind(c.Params("type")), opts)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(analysis)
}

type CustomReportRequest struct {
	Title          string                    `json:"title"`
	Sections       []analytics.ReportSection `json:"sections"`
	Period         *int                      `json:"period"`
	ForecastMonths *int                      `json:"forecast_months"`
	Series         analytics.SeriesKind      `json:"series"`
}

// POST /api/analytics/reports
func (h *Handlers) CustomReport(c *fiber.Ctx) error {
	companyID, err := auth.CompanyID(c)
	if err != nil {
		return err
	}

	var body CustomReportRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
	}

	opts := analytics.Options{
		WindowMonths:   h.defaults.WindowMonths,
		ForecastMonths: h.defaults.ForecastMonths,
		Series:         body.Series,
	}
	if body.Period != nil {
		opts.WindowMonths = *body.Period
	}
	if body.ForecastMonths != nil {
		opts.ForecastMonths = *body.ForecastMonths
	}

	report, err := h.composer.CustomReport(c.UserContext(), companyID, analytics.ReportRequest{
		Title:    body.Title,
		Sections: body.Sections,
		Options:  opts,
	})
	if err != nil {
		return toHTTPError(c, err)
	}

	logger.From(c).Info().Int("sections", len(report.Requested)).Msg("custom report generated")
	return c.JSON(report)
}
