package cashflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/financial"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type TransactionRequest struct {
	Name          *string                 `json:"name"`
	Amount        *decimal.Decimal        `json:"amount"`
	Type          *models.TransactionType `json:"type"`           // income | expense | savings
	Category      *string                 `json:"category"`
	PaymentMethod *models.PaymentMethod   `json:"payment_method"` // bank | cash | card
	Date          *string                 `json:"date"`           // YYYY-MM-DD, empty means today
	ClientID      *uint                   `json:"client_id"`
	AccountID     *uint                   `json:"account_id"`
	Notes         *string                 `json:"notes"`
}

type TransactionResponse struct {
	ID            uint                   `json:"id"`
	TransactionID string                 `json:"transaction_id"`
	Name          string                 `json:"name"`
	Amount        decimal.Decimal        `json:"amount"`
	Type          models.TransactionType `json:"type"`
	Category      string                 `json:"category"`
	PaymentMethod models.PaymentMethod   `json:"payment_method"`
	Date          string                 `json:"date"`
	ClientID      *uint                  `json:"client_id"`
	AccountID     *uint                  `json:"account_id"`
	Notes         string                 `json:"notes"`
}

func toResponse(t models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		TransactionID: t.TransactionID,
		Name:          t.Name,
		Amount:        t.Amount,
		Type:          t.Type,
		Category:      t.Category,
		PaymentMethod: t.PaymentMethod,
		Date:          t.Date.Format(dateLayout),
		ClientID:      t.ClientID,
		AccountID:     t.AccountID,
		Notes:         t.Notes,
	}
}

// NewTransactionID returns a public identifier such as T-1A2B3C4D5E.
func NewTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "T-" + strings.ToUpper(raw[:10])
}

func validType(t models.TransactionType) bool {
	switch t {
	case models.TransactionIncome, models.TransactionExpense, models.TransactionSavings:
		return true
	}
	return false
}

func validMethod(m models.PaymentMethod) bool {
	switch m {
	case models.PaymentBank, models.PaymentCash, models.PaymentCard:
		return true
	}
	return false
}

// apply copies the set request fields onto t and validates the result.
func (r TransactionRequest) apply(t *models.Transaction) error {
	if r.Name != nil {
		t.Name = strings.TrimSpace(*r.Name)
	}
	if r.Amount != nil {
		t.Amount = r.Amount.Round(2)
	}
	if r.Type != nil {
		t.Type = *r.Type
	}
	if r.Category != nil {
		t.Category = strings.TrimSpace(*r.Category)
	}
	if r.PaymentMethod != nil {
		t.PaymentMethod = *r.PaymentMethod
	}
	if r.Date != nil || t.Date.IsZero() {
		d, err := financial.ParseDate(r.Date)
		if err != nil {
			return err
		}
		t.Date = d
	}
	if r.ClientID != nil {
		t.ClientID = r.ClientID
	}
	if r.AccountID != nil {
		t.AccountID = r.AccountID
	}
	if r.Notes != nil {
		t.Notes = *r.Notes
	}

	if t.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Il nome è obbligatorio")
	}
	if !t.Amount.IsPositive() {
		return fiber.NewError(fiber.StatusBadRequest, "L'importo deve essere maggiore di 0")
	}
	if !validType(t.Type) {
		return fiber.NewError(fiber.StatusBadRequest, "Tipo non valido (income|expense|savings)")
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = models.PaymentBank
	}
	if !validMethod(t.PaymentMethod) {
		return fiber.NewError(fiber.StatusBadRequest, "Metodo di pagamento non valido (bank|cash|card)")
	}
	return nil
}

// checkOwned verifies that referenced client and account rows belong to the tenant.
func checkOwned(db *gorm.DB, companyID uint, t models.Transaction) error {
	if t.ClientID != nil {
		var n int64
		db.Model(&models.Client{}).Where("id = ? AND company_id = ?", *t.ClientID, companyID).Count(&n)
		if n == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Cliente non trovato")
		}
	}
	if t.AccountID != nil {
		var n int64
		db.Model(&models.Account{}).Where("id = ? AND company_id = ?", *t.AccountID, companyID).Count(&n)
		if n == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Conto non trovato")
		}
	}
	return nil
}

// -------------------------------------------------
// GET /api/transactions?type=income&from=2025-01-01&to=2025-12-31&payment_method=cash
// -------------------------------------------------
func ListTransactionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		dbq := db.Model(&models.Transaction{}).Where("company_id = ?", companyID)

		if s := c.Query("type"); s != "" {
			if !validType(models.TransactionType(s)) {
				return fiber.NewError(fiber.StatusBadRequest, "Tipo non valido")
			}
			dbq = dbq.Where("type = ?", s)
		}
		if s := c.Query("payment_method"); s != "" {
			dbq = dbq.Where("payment_method = ?", s)
		}
		if s := c.Query("from"); s != "" {
			from, err := time.Parse(dateLayout, s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Data from non valida")
			}
			dbq = dbq.Where("date >= ?", from)
		}
		if s := c.Query("to"); s != "" {
			to, err := time.Parse(dateLayout, s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Data to non valida")
			}
			dbq = dbq.Where("date <= ?", to)
		}

		var rows []models.Transaction
		if err := dbq.Order("date DESC").Order("id DESC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile elencare le transazioni")
		}

		resp := make([]TransactionResponse, 0, len(rows))
		for _, t := range rows {
			resp = append(resp, toResponse(t))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// POST /api/transactions
// -------------------------------------------------
func CreateTransactionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body TransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		tr := models.Transaction{
			TransactionID: NewTransactionID(),
			CompanyID:     actor.CompanyID,
			UserID:        actor.UserID,
		}
		if err := body.apply(&tr); err != nil {
			return err
		}
		if err := checkOwned(db, actor.CompanyID, tr); err != nil {
			return err
		}

		if err := db.Create(&tr).Error; err != nil {
			logger.From(c).Error().Err(err).Msg("transaction create failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Transazione non creata")
		}

		audit.Record(c, db, actor, audit.EntityTransaction, tr.ID, models.AuditActionCreate,
			fmt.Sprintf("Transazione %s aggiunta: %s %s EUR", tr.TransactionID, tr.Type, tr.Amount.StringFixed(2)),
			nil, tr)

		return c.Status(fiber.StatusCreated).JSON(toResponse(tr))
	}
}

func findTransaction(db *gorm.DB, c *fiber.Ctx, companyID uint) (models.Transaction, error) {
	var tr models.Transaction
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return tr, fiber.NewError(fiber.StatusBadRequest, "ID non valido")
	}
	err = db.Where("id = ? AND company_id = ?", id, companyID).First(&tr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tr, fiber.NewError(fiber.StatusNotFound, "Transazione non trovata")
	}
	if err != nil {
		return tr, fiber.NewError(fiber.StatusInternalServerError, "Transazione non disponibile")
	}
	return tr, nil
}

// -------------------------------------------------
// PUT /api/transactions/:id
// -------------------------------------------------
func UpdateTransactionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		tr, err := findTransaction(db, c, actor.CompanyID)
		if err != nil {
			return err
		}
		before := tr

		var body TransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		if err := body.apply(&tr); err != nil {
			return err
		}
		if err := checkOwned(db, actor.CompanyID, tr); err != nil {
			return err
		}

		if err := db.Save(&tr).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transazione non aggiornata")
		}

		audit.Record(c, db, actor, audit.EntityTransaction, tr.ID, models.AuditActionUpdate,
			fmt.Sprintf("Transazione %s aggiornata", tr.TransactionID), before, tr)

		return c.JSON(toResponse(tr))
	}
}

// -------------------------------------------------
// DELETE /api/transactions/:id
// -------------------------------------------------
func DeleteTransactionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		tr, err := findTransaction(db, c, actor.CompanyID)
		if err != nil {
			return err
		}

		if err := db.Delete(&tr).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transazione non eliminata")
		}

		audit.Record(c, db, actor, audit.EntityTransaction, tr.ID, models.AuditActionDelete,
			fmt.Sprintf("Transazione %s eliminata", tr.TransactionID), tr, nil)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
