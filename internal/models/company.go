package models

import (
	"time"

	"gorm.io/datatypes"
)

// CompanySettings is stored as a JSON column on the company row.
type CompanySettings struct {
	Currency        string `json:"currency"`
	Timezone        string `json:"timezone"`
	Language        string `json:"language"`
	FiscalYearStart string `json:"fiscal_year_start"` // MM-DD
}

func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		Currency:        "EUR",
		Timezone:        "Europe/Rome",
		Language:        "it",
		FiscalYearStart: "01-01",
	}
}

// Company is the tenant root; every other row carries a CompanyID.
type Company struct {
	ID        uint                                `gorm:"primaryKey" json:"id"`
	Name      string                              `gorm:"size:255;not null" json:"name"`
	Industry  string                              `gorm:"size:100" json:"industry"`
	VATNumber string                              `gorm:"size:50" json:"vat_number"`
	Address   string                              `gorm:"size:255" json:"address"`
	Phone     string                              `gorm:"size:50" json:"phone"`
	Settings  datatypes.JSONType[CompanySettings] `json:"settings"`
	IsActive  bool                                `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time                           `json:"created_at"`
	UpdatedAt time.Time                           `json:"updated_at"`

	Users []User `json:"-"`
}
