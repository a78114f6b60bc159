package store

import (
	"context"
	"fmt"
	"time"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/models"

	"gorm.io/gorm"
)

// Store reads tenant scoped rows for the analytics composer.
type Store struct {
	db *gorm.DB
}

var _ analytics.Source = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FinancialRecords(ctx context.Context, companyID uint, from, to time.Time) ([]analytics.Record, error) {
	var rows []models.FinancialRecord
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND date >= ? AND date <= ?", companyID, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("financial records query: %w", err)
	}

	out := make([]analytics.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.Record{
			CompanyID: r.CompanyID,
			Date:      r.Date,
			Revenue:   r.Revenue,
			Expenses:  r.Expenses,
			Category:  r.Category,
		})
	}
	return out, nil
}

func (s *Store) Transactions(ctx context.Context, companyID uint, from, to time.Time) ([]analytics.Record, error) {
	var rows []models.Transaction
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND date >= ? AND date <= ?", companyID, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("transactions query: %w", err)
	}

	out := make([]analytics.Record, 0, len(rows))
	for _, t := range rows {
		r, ok := analytics.TransactionRecord(t.CompanyID, t.Date, string(t.Type), t.Amount.InexactFloat64(), t.Category)
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Employees(ctx context.Context, companyID uint) ([]analytics.Employee, error) {
	var rows []models.Employee
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("employees query: %w", err)
	}

	out := make([]analytics.Employee, 0, len(rows))
	for _, e := range rows {
		out = append(out, analytics.Employee{
			ID:         e.ID,
			Name:       e.FullName(),
			Department: e.Department,
			Position:   e.Position,
			Salary:     e.Salary,
			HireDate:   e.HireDate,
		})
	}
	return out, nil
}

func (s *Store) Assessments(ctx context.Context, companyID uint) ([]analytics.AssessmentResult, error) {
	var rows []models.Assessment
	err := s.db.WithContext(ctx).
		Select("employee_id", "test_type", "overall_score", "completed_at").
		Where("company_id = ?", companyID).
		Order("completed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("assessments query: %w", err)
	}

	out := make([]analytics.AssessmentResult, 0, len(rows))
	for _, a := range rows {
		out = append(out, analytics.AssessmentResult{
			EmployeeID:  a.EmployeeID,
			TestType:    string(a.TestType),
			Score:       a.OverallScore,
			CompletedAt: a.CompletedAt,
		})
	}
	return out, nil
}

