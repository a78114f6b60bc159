package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeBank    AccountType = "bank"
	AccountTypeCash    AccountType = "cash"
	AccountTypeCard    AccountType = "card"
	AccountTypeSavings AccountType = "savings"
)

// Account holds a balance snapshot; it is not recomputed from transactions.
type Account struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CompanyID     uint            `gorm:"index;not null" json:"company_id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Type          AccountType     `gorm:"size:20;not null" json:"type"`
	Balance       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	AccountNumber string          `gorm:"size:50" json:"account_number"`
	BankName      string          `gorm:"size:100" json:"bank_name"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
