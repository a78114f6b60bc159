// Package testutil holds helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/httperr"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NewApp returns an app whose requests are authenticated as actor, skipping
// token parsing.
func NewApp(actor auth.Actor) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, actor.UserID)
		c.Locals(auth.CtxCompanyIDKey, actor.CompanyID)
		role := actor.Role
		if role == "" {
			role = models.RoleAdmin
		}
		c.Locals(auth.CtxUserRoleKey, role)
		return c.Next()
	})
	return app
}

// SeedCompany creates a company with an admin user and returns the actor.
func SeedCompany(t testing.TB, db *gorm.DB, name string) auth.Actor {
	t.Helper()

	company := models.Company{Name: name, Settings: datatypes.NewJSONType(models.DefaultCompanySettings())}
	require.NoError(t, db.Create(&company).Error)

	user := models.User{
		CompanyID: company.ID,
		FirstName: "Anna",
		LastName:  "Rossi",
		Email:     uuid.NewString() + "@example.com",
		Role:      models.RoleAdmin,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&user).Error)

	return auth.Actor{UserID: user.ID, CompanyID: company.ID, Role: models.RoleAdmin}
}

// Do sends a JSON request and decodes the JSON response into out when it is
// not nil. It returns the status code.
func Do(t testing.TB, app *fiber.App, method, path string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}
