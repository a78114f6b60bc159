package admin

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CompanyResponse struct {
	ID        uint                   `json:"id"`
	Name      string                 `json:"name"`
	Industry  string                 `json:"industry"`
	VATNumber string                 `json:"vat_number"`
	Address   string                 `json:"address"`
	Phone     string                 `json:"phone"`
	Settings  models.CompanySettings `json:"settings"`
	Users     int64                  `json:"users"`
	CreatedAt string                 `json:"created_at"`
}

type UpdateCompanyRequest struct {
	Name      *string `json:"name"`
	Industry  *string `json:"industry"`
	VATNumber *string `json:"vat_number"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
}

type UpdateSettingsRequest struct {
	Currency        *string `json:"currency"`
	Timezone        *string `json:"timezone"`
	Language        *string `json:"language"`
	FiscalYearStart *string `json:"fiscal_year_start"`
}

type CreateUserRequest struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Role      models.UserRole `json:"role"`
}

var (
	currencyRe   = regexp.MustCompile(`^[A-Z]{3}$`)
	fiscalDayRe  = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)
	supportedLng = map[string]bool{"it": true, "en": true}
)

func loadCompany(db *gorm.DB, companyID uint) (models.Company, error) {
	var company models.Company
	err := db.First(&company, companyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return company, fiber.NewError(fiber.StatusNotFound, "Azienda non trovata")
	}
	if err != nil {
		return company, fiber.NewError(fiber.StatusInternalServerError, "Azienda non disponibile")
	}
	return company, nil
}

func toCompanyResponse(db *gorm.DB, company models.Company) CompanyResponse {
	var users int64
	db.Model(&models.User{}).Where("company_id = ?", company.ID).Count(&users)

	return CompanyResponse{
		ID:        company.ID,
		Name:      company.Name,
		Industry:  company.Industry,
		VATNumber: company.VATNumber,
		Address:   company.Address,
		Phone:     company.Phone,
		Settings:  company.Settings.Data(),
		Users:     users,
		CreatedAt: company.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// GET /api/company
// ----------------------------------------
func GetCompanyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}
		company, err := loadCompany(db, companyID)
		if err != nil {
			return err
		}
		return c.JSON(toCompanyResponse(db, company))
	}
}

// ----------------------------------------
// PUT /api/company (admin)
// ----------------------------------------
func UpdateCompanyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}
		company, err := loadCompany(db, companyID)
		if err != nil {
			return err
		}

		var body UpdateCompanyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Il nome dell'azienda non può essere vuoto")
			}
			company.Name = name
		}
		if body.Industry != nil {
			company.Industry = strings.TrimSpace(*body.Industry)
		}
		if body.VATNumber != nil {
			company.VATNumber = strings.TrimSpace(*body.VATNumber)
		}
		if body.Address != nil {
			company.Address = *body.Address
		}
		if body.Phone != nil {
			company.Phone = *body.Phone
		}

		if err := db.Save(&company).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Azienda non aggiornata")
		}
		return c.JSON(toCompanyResponse(db, company))
	}
}

// ----------------------------------------
// PUT /api/company/settings (admin)
// ----------------------------------------
func UpdateSettingsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}
		company, err := loadCompany(db, companyID)
		if err != nil {
			return err
		}

		var body UpdateSettingsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		settings := company.Settings.Data()
		if body.Currency != nil {
			cur := strings.ToUpper(strings.TrimSpace(*body.Currency))
			if !currencyRe.MatchString(cur) {
				return fiber.NewError(fiber.StatusBadRequest, "Valuta non valida (codice ISO a 3 lettere)")
			}
			settings.Currency = cur
		}
		if body.Timezone != nil {
			if _, err := time.LoadLocation(*body.Timezone); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Fuso orario non valido")
			}
			settings.Timezone = *body.Timezone
		}
		if body.Language != nil {
			if !supportedLng[*body.Language] {
				return fiber.NewError(fiber.StatusBadRequest, "Lingua non supportata (it|en)")
			}
			settings.Language = *body.Language
		}
		if body.FiscalYearStart != nil {
			if !fiscalDayRe.MatchString(*body.FiscalYearStart) {
				return fiber.NewError(fiber.StatusBadRequest, "Inizio anno fiscale non valido (MM-DD)")
			}
			settings.FiscalYearStart = *body.FiscalYearStart
		}

		company.Settings = datatypes.NewJSONType(settings)
		if err := db.Model(&company).Update("settings", company.Settings).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impostazioni non aggiornate")
		}
		return c.JSON(settings)
	}
}

// ----------------------------------------
// GET /api/company/users (admin)
// ----------------------------------------
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		var users []models.User
		if err := db.Where("company_id = ?", companyID).
			Order("created_at DESC").
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utenti non elencati")
		}

		res := make([]auth.UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, auth.ToUserResponse(u))
		}
		return c.JSON(res)
	}
}

// ----------------------------------------
// POST /api/company/users (admin)
// ----------------------------------------
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.FirstName = strings.TrimSpace(body.FirstName)
		body.LastName = strings.TrimSpace(body.LastName)
		if body.Role == "" {
			body.Role = models.RoleEmployee
		}

		if body.FirstName == "" || body.LastName == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nome, cognome, email e password sono obbligatori")
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Ruolo non valido (admin|manager|employee)")
		}
		if len(body.Password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "La password deve avere almeno 8 caratteri")
		}

		var exist int64
		db.Model(&models.User{}).Where("email = ?", body.Email).Count(&exist)
		if exist > 0 {
			return fiber.NewError(fiber.StatusConflict, "Email già registrata")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile cifrare la password")
		}

		user := models.User{
			CompanyID:    companyID,
			FirstName:    body.FirstName,
			LastName:     body.LastName,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         body.Role,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			logger.From(c).Error().Err(err).Msg("user create failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Utente non creato")
		}

		return c.Status(fiber.StatusCreated).JSON(auth.ToUserResponse(user))
	}
}
