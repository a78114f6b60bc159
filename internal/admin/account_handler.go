package admin

import (
	"errors"
	"fmt"
	"strings"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AccountRequest struct {
	Name          *string             `json:"name"`
	Type          *models.AccountType `json:"type"` // bank | cash | card | savings
	Balance       *decimal.Decimal    `json:"balance"`
	AccountNumber *string             `json:"account_number"`
	BankName      *string             `json:"bank_name"`
	IsActive      *bool               `json:"is_active"`
}

type AccountResponse struct {
	ID            uint               `json:"id"`
	Name          string             `json:"name"`
	Type          models.AccountType `json:"type"`
	Balance       decimal.Decimal    `json:"balance"`
	AccountNumber string             `json:"account_number"`
	BankName      string             `json:"bank_name"`
	IsActive      bool               `json:"is_active"`
	UpdatedAt     string             `json:"updated_at"`
}

type AccountListResponse struct {
	Accounts     []AccountResponse `json:"accounts"`
	TotalBalance decimal.Decimal   `json:"total_balance"`
}

func toAccountResponse(a models.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Name:          a.Name,
		Type:          a.Type,
		Balance:       a.Balance,
		AccountNumber: a.AccountNumber,
		BankName:      a.BankName,
		IsActive:      a.IsActive,
		UpdatedAt:     a.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func validAccountType(t models.AccountType) bool {
	switch t {
	case models.AccountTypeBank, models.AccountTypeCash, models.AccountTypeCard, models.AccountTypeSavings:
		return true
	}
	return false
}

func (r AccountRequest) apply(a *models.Account) error {
	if r.Name != nil {
		a.Name = strings.TrimSpace(*r.Name)
	}
	if r.Type != nil {
		a.Type = *r.Type
	}
	if r.Balance != nil {
		a.Balance = r.Balance.Round(2)
	}
	if r.AccountNumber != nil {
		a.AccountNumber = strings.TrimSpace(*r.AccountNumber)
	}
	if r.BankName != nil {
		a.BankName = strings.TrimSpace(*r.BankName)
	}
	if r.IsActive != nil {
		a.IsActive = *r.IsActive
	}

	if a.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Il nome del conto è obbligatorio")
	}
	if !validAccountType(a.Type) {
		return fiber.NewError(fiber.StatusBadRequest, "Tipo di conto non valido (bank|cash|card|savings)")
	}
	if a.Balance.IsNegative() {
		return fiber.NewError(fiber.StatusBadRequest, "Il saldo non può essere negativo")
	}
	return nil
}

// GET /api/accounts
func ListAccountsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		dbq := db.Where("company_id = ?", companyID)
		if c.Query("active") == "true" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var accounts []models.Account
		if err := dbq.Order("type").Order("name").Find(&accounts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Conti non elencati")
		}

		resp := AccountListResponse{Accounts: make([]AccountResponse, 0, len(accounts))}
		for _, a := range accounts {
			resp.Accounts = append(resp.Accounts, toAccountResponse(a))
			if a.IsActive {
				resp.TotalBalance = resp.TotalBalance.Add(a.Balance)
			}
		}
		return c.JSON(resp)
	}
}

// POST /api/accounts
func CreateAccountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body AccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		account := models.Account{CompanyID: actor.CompanyID, IsActive: true}
		if err := body.apply(&account); err != nil {
			return err
		}
		if err := db.Create(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Conto non creato")
		}

		audit.Record(c, db, actor, audit.EntityAccount, account.ID, models.AuditActionCreate,
			fmt.Sprintf("Conto aggiunto: %s (%s)", account.Name, account.Type), nil, account)

		return c.Status(fiber.StatusCreated).JSON(toAccountResponse(account))
	}
}

func findAccount(db *gorm.DB, c *fiber.Ctx, companyID uint) (models.Account, error) {
	var account models.Account
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return account, fiber.NewError(fiber.StatusBadRequest, "ID non valido")
	}
	err = db.Where("id = ? AND company_id = ?", id, companyID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return account, fiber.NewError(fiber.StatusNotFound, "Conto non trovato")
	}
	if err != nil {
		return account, fiber.NewError(fiber.StatusInternalServerError, "Conto non disponibile")
	}
	return account, nil
}

// PUT /api/accounts/:id
func UpdateAccountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		account, err := findAccount(db, c, actor.CompanyID)
		if err != nil {
			return err
		}
		before := account

		var body AccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		if err := body.apply(&account); err != nil {
			return err
		}
		if err := db.Save(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Conto non aggiornato")
		}

		desc := fmt.Sprintf("Conto aggiornato: %s", account.Name)
		if !before.Balance.Equal(account.Balance) {
			desc = fmt.Sprintf("Saldo di %s: %s -> %s", account.Name, before.Balance.StringFixed(2), account.Balance.StringFixed(2))
		}
		audit.Record(c, db, actor, audit.EntityAccount, account.ID, models.AuditActionUpdate, desc, before, account)

		return c.JSON(toAccountResponse(account))
	}
}

// DELETE /api/accounts/:id
func DeleteAccountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		account, err := findAccount(db, c, actor.CompanyID)
		if err != nil {
			return err
		}

		var used int64
		db.Model(&models.Transaction{}).Where("account_id = ?", account.ID).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, "Il conto ha transazioni collegate, disattivalo invece di eliminarlo")
		}

		if err := db.Delete(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Conto non eliminato")
		}

		audit.Record(c, db, actor, audit.EntityAccount, account.ID, models.AuditActionDelete,
			fmt.Sprintf("Conto eliminato: %s", account.Name), account, nil)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
