package auth

import (
	"strings"

	"doflow-backend/internal/config"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserRoleKey  = "user_role"
	CtxCompanyIDKey = "company_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Header Authorization mancante")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Il formato di Authorization deve essere 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token non valido o scaduto")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxCompanyIDKey, claims.CompanyID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Ruolo non disponibile")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Non hai i permessi per questa operazione")
	}
}

// CompanyID returns the tenant of the authenticated user. The tenant always
// comes from the token, never from the request.
func CompanyID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxCompanyIDKey).(uint)
	if !ok || id == 0 {
		return 0, fiber.NewError(fiber.StatusForbidden, "Azienda non disponibile")
	}
	return id, nil
}

func UserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || id == 0 {
		return 0, fiber.NewError(fiber.StatusForbidden, "Utente non disponibile")
	}
	return id, nil
}

// Actor bundles the identity used for tenant scoping and audit logs.
type Actor struct {
	UserID    uint
	CompanyID uint
	Role      models.UserRole
}

func ActorFrom(c *fiber.Ctx) (Actor, error) {
	companyID, err := CompanyID(c)
	if err != nil {
		return Actor{}, err
	}
	userID, err := UserID(c)
	if err != nil {
		return Actor{}, err
	}
	role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return Actor{UserID: userID, CompanyID: companyID, Role: role}, nil
}
