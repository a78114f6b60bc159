package models

import (
	"time"

	"gorm.io/datatypes"
)

type TestType string

const (
	TestCognitive     TestType = "cognitive"
	TestPersonality   TestType = "personality"
	TestTechnical     TestType = "technical"
	TestLeadership    TestType = "leadership"
	TestCommunication TestType = "communication"
)

type AssessmentAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Assessment is immutable once stored.
type Assessment struct {
	ID           uint                                  `gorm:"primaryKey" json:"id"`
	CompanyID    uint                                  `gorm:"index;not null" json:"company_id"`
	EmployeeID   uint                                  `gorm:"index;not null" json:"employee_id"`
	TestType     TestType                              `gorm:"size:20;not null" json:"test_type"`
	Responses    datatypes.JSONSlice[AssessmentAnswer] `json:"responses"`
	OverallScore float64                               `gorm:"not null" json:"overall_score"` // 0..100
	Insights     datatypes.JSONSlice[string]           `json:"insights"`
	Notes        string                                `gorm:"size:500" json:"notes"`
	CompletedAt  time.Time                             `gorm:"index" json:"completed_at"`
	ConductedBy  uint                                  `json:"conducted_by"`
	CreatedAt    time.Time                             `json:"created_at"`
}
