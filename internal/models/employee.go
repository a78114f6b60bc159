package models

import "time"

// Employee is an HR record; it is independent of login users.
type Employee struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CompanyID  uint      `gorm:"index;not null" json:"company_id"`
	FirstName  string    `gorm:"size:100;not null" json:"first_name"`
	LastName   string    `gorm:"size:100;not null" json:"last_name"`
	Email      string    `gorm:"size:255" json:"email"`
	Position   string    `gorm:"size:100" json:"position"`
	Department string    `gorm:"size:100;index" json:"department"`
	HireDate   time.Time `json:"hire_date"`
	Salary     float64   `gorm:"default:0" json:"salary"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Assessments []Assessment `json:"-"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}
