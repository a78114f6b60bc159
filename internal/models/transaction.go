package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
	TransactionSavings TransactionType = "savings"
)

type PaymentMethod string

const (
	PaymentBank PaymentMethod = "bank"
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// Transaction is a ledger entry; amounts are stored as fixed point.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TransactionID string          `gorm:"size:40;uniqueIndex;not null" json:"transaction_id"` // T-XXXXXXXX
	CompanyID     uint            `gorm:"index;not null" json:"company_id"`
	UserID        uint            `gorm:"index" json:"user_id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type          TransactionType `gorm:"size:20;index;not null" json:"type"`
	Category      string          `gorm:"size:100" json:"category"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	ClientID      *uint           `json:"client_id"`
	AccountID     *uint           `json:"account_id"`
	Notes         string          `gorm:"size:500" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
