package auth

import (
	"errors"
	"strings"
	"time"

	"doflow-backend/internal/config"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type RegisterRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UserResponse struct {
	ID          uint            `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	CompanyID   uint            `json:"company_id"`
	LastLoginAt *string         `json:"last_login_at"`
}

// ToUserResponse hides the password hash and formats the login time.
func ToUserResponse(u models.User) UserResponse {
	var last *string
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.Format("2006-01-02 15:04:05")
		last = &s
	}
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role,
		CompanyID:   u.CompanyID,
		LastLoginAt: last,
	}
}

// POST /api/auth/register
// Creates a company together with its first admin user.
func RegisterHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.CompanyName = strings.TrimSpace(body.CompanyName)

		if body.Email == "" || body.Password == "" || body.FirstName == "" || body.LastName == "" || body.CompanyName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nome, cognome, email, password e azienda sono obbligatori")
		}
		if len(body.Password) < minPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "La password deve avere almeno 8 caratteri")
		}

		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", body.Email).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Verifica email non riuscita")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Email già registrata")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile cifrare la password")
		}

		company := models.Company{
			Name:     body.CompanyName,
			Industry: body.Industry,
			Settings: datatypes.NewJSONType(models.DefaultCompanySettings()),
			IsActive: true,
		}
		user := models.User{
			FirstName:    body.FirstName,
			LastName:     body.LastName,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			IsActive:     true,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&company).Error; err != nil {
				return err
			}
			user.CompanyID = company.ID
			return tx.Create(&user).Error
		})
		if err != nil {
			logger.From(c).Error().Err(err).Msg("registration failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Registrazione non riuscita")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile generare il token")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token": token,
			"user":  ToUserResponse(user),
			"company": fiber.Map{
				"id":       company.ID,
				"name":     company.Name,
				"industry": company.Industry,
				"settings": company.Settings.Data(),
			},
		})
	}
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email o password errati")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "Account disattivato")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email o password errati")
		}

		now := time.Now().UTC()
		if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
			logger.From(c).Warn().Err(err).Uint("user_id", user.ID).Msg("last login not updated")
		}
		user.LastLoginAt = &now

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile generare il token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  ToUserResponse(user),
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.Preload("Company").
			Where("id = ? AND company_id = ?", actor.UserID, actor.CompanyID).
			First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Utente non trovato")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Utente non disponibile")
		}

		resp := fiber.Map{"user": ToUserResponse(user)}
		if user.Company != nil {
			resp["company"] = fiber.Map{
				"id":       user.Company.ID,
				"name":     user.Company.Name,
				"industry": user.Company.Industry,
				"settings": user.Company.Settings.Data(),
			}
		}
		return c.JSON(resp)
	}
}

// GET /api/auth/verify
// The token has already been checked by JWTMiddleware; this also rejects
// tokens of users that were deactivated or anonymised since they logged in.
func VerifyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var user models.User
		err = db.Preload("Company").
			Where("id = ? AND company_id = ? AND is_active = ?", actor.UserID, actor.CompanyID, true).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "Token non valido o scaduto")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utente non disponibile")
		}

		resp := fiber.Map{"valid": true, "user": ToUserResponse(user)}
		if user.Company != nil {
			resp["company"] = fiber.Map{
				"id":       user.Company.ID,
				"name":     user.Company.Name,
				"industry": user.Company.Industry,
			}
		}
		return c.JSON(resp)
	}
}

// PUT /api/auth/profile
func UpdateProfileHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var body UpdateProfileRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		updates := map[string]interface{}{}
		if body.FirstName != nil {
			if strings.TrimSpace(*body.FirstName) == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Il nome non può essere vuoto")
			}
			updates["first_name"] = strings.TrimSpace(*body.FirstName)
		}
		if body.LastName != nil {
			if strings.TrimSpace(*body.LastName) == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Il cognome non può essere vuoto")
			}
			updates["last_name"] = strings.TrimSpace(*body.LastName)
		}
		if len(updates) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Nessun campo da aggiornare")
		}

		res := db.Model(&models.User{}).
			Where("id = ? AND company_id = ?", actor.UserID, actor.CompanyID).
			Updates(updates)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Profilo non aggiornato")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Utente non trovato")
		}

		var user models.User
		if err := db.First(&user, actor.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utente non disponibile")
		}
		return c.JSON(ToUserResponse(user))
	}
}

// PUT /api/auth/password
func ChangePasswordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		if len(body.NewPassword) < minPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "La password deve avere almeno 8 caratteri")
		}

		var user models.User
		if err := db.Where("id = ? AND company_id = ?", actor.UserID, actor.CompanyID).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utente non trovato")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.CurrentPassword)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Password attuale errata")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile cifrare la password")
		}
		if err := db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Password non aggiornata")
		}

		return c.JSON(fiber.Map{"message": "Password aggiornata"})
	}
}

// UserName resolves the display name stored in audit logs.
func UserName(db *gorm.DB, userID uint) string {
	var user models.User
	if err := db.Select("first_name", "last_name").First(&user, userID).Error; err != nil {
		return ""
	}
	return user.FullName()
}
