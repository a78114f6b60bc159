package server

import (
	"strings"

	"doflow-backend/internal/admin"
	"doflow-backend/internal/analytics"
	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/cashflow"
	"doflow-backend/internal/chat"
	"doflow-backend/internal/config"
	"doflow-backend/internal/dashboard"
	"doflow-backend/internal/financial"
	"doflow-backend/internal/gdpr"
	"doflow-backend/internal/hr"
	"doflow-backend/internal/httperr"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"
	"doflow-backend/internal/report"
	"doflow-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewApp builds the fiber application with every API route registered.
func NewApp(cfg *config.Config, db *gorm.DB, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(logger.Requests(log))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	composer := analytics.NewComposer(store.New(db))
	privacy := gdpr.New(db)
	views := dashboard.NewHandlers(composer, cfg.Analytics())
	managers := auth.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := auth.RequireRole(models.RoleAdmin)

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(db, cfg))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg), audit.UseMasker(privacy))

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Get("/auth/verify", auth.VerifyHandler(db))
	protected.Put("/auth/profile", auth.UpdateProfileHandler(db))
	protected.Put("/auth/password", auth.ChangePasswordHandler(db))

	// Financial records and dashboards
	protected.Get("/financial/data", financial.ListRecordsHandler(db))
	protected.Post("/financial/data", managers, financial.CreateRecordHandler(db))
	protected.Put("/financial/data/:id", managers, financial.UpdateRecordHandler(db))
	protected.Delete("/financial/data/:id", managers, financial.DeleteRecordHandler(db))
	protected.Post("/financial/import", managers, financial.ImportRecordsHandler(db))
	protected.Get("/financial/dashboard", views.FinancialDashboard)
	protected.Get("/financial/forecast", views.Forecast)

	// Transactions
	protected.Get("/transactions", cashflow.ListTransactionsHandler(db))
	protected.Get("/transactions/summary/monthly", cashflow.MonthlySummaryHandler(db))
	protected.Post("/transactions", cashflow.CreateTransactionHandler(db))
	protected.Put("/transactions/:id", cashflow.UpdateTransactionHandler(db))
	protected.Delete("/transactions/:id", managers, cashflow.DeleteTransactionHandler(db))

	// Accounts and clients
	protected.Get("/accounts", admin.ListAccountsHandler(db))
	protected.Post("/accounts", managers, admin.CreateAccountHandler(db))
	protected.Put("/accounts/:id", managers, admin.UpdateAccountHandler(db))
	protected.Delete("/accounts/:id", managers, admin.DeleteAccountHandler(db))
	protected.Get("/clients", admin.ListClientsHandler(db))
	protected.Post("/clients", admin.CreateClientHandler(db))

	// Company
	protected.Get("/company", admin.GetCompanyHandler(db))
	protected.Put("/company", admins, admin.UpdateCompanyHandler(db))
	protected.Put("/company/settings", admins, admin.UpdateSettingsHandler(db))
	protected.Get("/company/users", admins, admin.ListUsersHandler(db))
	protected.Post("/company/users", admins, admin.CreateUserHandler(db))

	// HR
	protected.Get("/hr/employees", hr.ListEmployeesHandler(db))
	protected.Post("/hr/employees", managers, hr.CreateEmployeeHandler(db))
	protected.Put("/hr/employees/:id", managers, hr.UpdateEmployeeHandler(db))
	protected.Get("/hr/employees/:id/assessments", hr.EmployeeAssessmentsHandler(db))
	protected.Get("/hr/assessments/types", hr.AssessmentTypesHandler())
	protected.Post("/hr/assessments", managers, hr.CreateAssessmentHandler(db, hr.CompletionScorer{}))
	protected.Get("/hr/insights/team", hr.TeamInsightsHandler(db))
	protected.Get("/hr/dashboard", views.HRDashboard)

	// Analytics
	protected.Get("/analytics/overview", views.Overview)
	protected.Get("/analytics/predictions", views.Predictions)
	protected.Get("/analytics/kpi/:type", views.KPIAnalysis)
	protected.Post("/analytics/reports", managers, views.CustomReport)
	protected.Get("/dashboard/cash-chart", dashboard.CashChartHandler(db))
	protected.Get("/reports/financial.xlsx", report.FinancialReportHandler(db, composer, cfg.Analytics()))

	// Chat
	protected.Post("/chat/message", chat.SendMessageHandler(db, chat.NewResponder()))
	protected.Get("/chat/history/:session_id", chat.HistoryHandler(db))
	protected.Get("/chat/sessions", chat.SessionsHandler(db))

	// Audit logs
	protected.Get("/audit-logs", managers, audit.ListAuditLogsHandler(db))
	protected.Post("/audit-logs/:id/undo", managers, audit.UndoAuditLogHandler(db))

	// Personal data
	protected.Get("/gdpr/export", gdpr.ExportOwnHandler(privacy))
	protected.Get("/gdpr/users/:id/export", admins, gdpr.ExportUserHandler(privacy))
	protected.Post("/gdpr/users/:id/anonymize", admins, gdpr.AnonymizeHandler(db, privacy))
	protected.Put("/gdpr/users/:id/rectify", admins, gdpr.RectifyHandler(db, privacy))

	return app
}
