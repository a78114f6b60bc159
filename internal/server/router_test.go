package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doflow-backend/internal/config"
	"doflow-backend/internal/audit"
	"doflow-backend/internal/database"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	app, _ := newTestServerDB(t)
	return app
}

func newTestServerDB(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		JWTTTL:         time.Hour,
		CORSOrigins:    "http://localhost:5173, http://example.test",
		WindowMonths:   12,
		ForecastMonths: 6,
	}
	db := database.OpenTest(t)
	return NewApp(cfg, db, zerolog.Nop()), db
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func register(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"first_name":   "Giulia",
		"last_name":    "Bianchi",
		"email":        email,
		"password":     "password123",
		"company_name": "Bianchi Srl",
	})
	require.Equal(t, http.StatusCreated, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	app := newTestServer(t)
	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestServer(t)

	for _, path := range []string{
		"/api/financial/dashboard",
		"/api/hr/dashboard",
		"/api/analytics/overview",
		"/api/chat/sessions",
		"/api/auth/verify",
		"/api/gdpr/export",
	} {
		status, body := call(t, app, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, status, path)
		require.Equal(t, "Header Authorization mancante", body["error"])
	}
}

func TestRegisteredAdminFlow(t *testing.T) {
	app := newTestServer(t)
	token := register(t, app, "giulia@bianchi.test")

	status, body := call(t, app, http.MethodGet, "/api/financial/dashboard", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	summary := body["summary"].(map[string]any)
	require.EqualValues(t, 0, summary["total_revenue"])

	status, _ = call(t, app, http.MethodPost, "/api/financial/data", token, map[string]any{
		"date":     time.Now().UTC().Format("2006-01-02"),
		"revenue":  1200,
		"expenses": 400,
		"category": "vendite",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = call(t, app, http.MethodGet, "/api/financial/data", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)

	status, body = call(t, app, http.MethodGet, "/api/financial/dashboard?period=0", token, nil)
	require.Equal(t, http.StatusBadRequest, status, body)

	status, body = call(t, app, http.MethodPost, "/api/chat/message", token, map[string]any{
		"message": "Ho speso 45 euro",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, app, http.MethodGet, "/api/audit-logs", token, nil)
	require.Equal(t, http.StatusOK, status, body)
}

func TestEmployeeRoleIsRestricted(t *testing.T) {
	app := newTestServer(t)
	adminToken := register(t, app, "admin@bianchi.test")

	status, body := call(t, app, http.MethodPost, "/api/company/users", adminToken, map[string]any{
		"first_name": "Marco",
		"last_name":  "Verdi",
		"email":      "marco@bianchi.test",
		"password":   "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	require.Equal(t, "employee", body["role"])

	status, body = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "marco@bianchi.test",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, body)
	token := body["token"].(string)

	status, _ = call(t, app, http.MethodGet, "/api/financial/data", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodPost, "/api/financial/data", token, map[string]any{"revenue": 10})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "Non hai i permessi per questa operazione", body["error"])

	status, _ = call(t, app, http.MethodPut, "/api/company/settings", token, map[string]any{"currency": "USD"})
	require.Equal(t, http.StatusForbidden, status)
}

func TestAnalyticsAndPrivacyRoutes(t *testing.T) {
	app, db := newTestServerDB(t)
	token := register(t, app, "giulia@bianchi.test")

	status, body := call(t, app, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, true, body["valid"])

	status, body = call(t, app, http.MethodGet, "/api/analytics/kpi/financial", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, "financial", body["kpi_type"])

	status, _ = call(t, app, http.MethodGet, "/api/analytics/kpi/marketing", token, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, "/api/analytics/reports", token, map[string]any{
		"title":    "Mensile",
		"sections": []string{"financial_summary", "recommendations"},
	})
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, "Mensile", body["title"])

	status, body = call(t, app, http.MethodPost, "/api/hr/employees", token, map[string]any{
		"first_name": "Luca",
		"last_name":  "Verdi",
		"email":      "luca.verdi@bianchi.test",
		"department": "Vendite",
		"salary":     42000,
	})
	require.Equal(t, http.StatusCreated, status, body)

	var log models.AuditLog
	require.NoError(t, db.Where("entity_type = ?", audit.EntityEmployee).First(&log).Error)
	require.NotContains(t, string(log.AfterData), "luca.verdi@bianchi.test")
	require.NotContains(t, string(log.AfterData), "42000")
	require.Contains(t, string(log.AfterData), "lu***@bianchi.test")

	status, body = call(t, app, http.MethodGet, "/api/gdpr/export", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	info := body["personal_info"].(map[string]any)
	require.Equal(t, "giulia@bianchi.test", info["email"])
	require.Equal(t, "Bianchi Srl", info["company_name"])
}

func TestPrivacyRoutesNeedAdmin(t *testing.T) {
	app := newTestServer(t)
	adminToken := register(t, app, "admin@bianchi.test")

	status, body := call(t, app, http.MethodPost, "/api/company/users", adminToken, map[string]any{
		"first_name": "Marco",
		"last_name":  "Verdi",
		"email":      "marco@bianchi.test",
		"password":   "password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	memberID := int(body["id"].(float64))

	status, body = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "marco@bianchi.test",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, body)
	token := body["token"].(string)

	status, _ = call(t, app, http.MethodGet, "/api/gdpr/export", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/gdpr/users/%d/export", memberID), token, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodPost, "/api/analytics/reports", token, map[string]any{"sections": []string{"hr_summary"}})
	require.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodPost, fmt.Sprintf("/api/gdpr/users/%d/anonymize", memberID), adminToken, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, _ = call(t, app, http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
