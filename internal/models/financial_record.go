package models

import "time"

// FinancialRecord is one entry of the revenue/expenses time series.
type FinancialRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanyID   uint      `gorm:"index;not null" json:"company_id"`
	Date        time.Time `gorm:"index;not null" json:"date"` // day granularity
	Revenue     float64   `gorm:"not null;default:0" json:"revenue"`
	Expenses    float64   `gorm:"not null;default:0" json:"expenses"`
	Category    string    `gorm:"size:100" json:"category"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
