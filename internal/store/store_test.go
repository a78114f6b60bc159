package store

import (
	"context"
	"testing"
	"time"

	"doflow-backend/internal/analytics"
	"doflow-backend/internal/database"
	"doflow-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedCompanies(t *testing.T, s *Store) (uint, uint) {
	t.Helper()
	a := models.Company{Name: "Alfa Srl", Settings: datatypes.NewJSONType(models.DefaultCompanySettings())}
	b := models.Company{Name: "Beta Spa", Settings: datatypes.NewJSONType(models.DefaultCompanySettings())}
	require.NoError(t, s.db.Create(&a).Error)
	require.NoError(t, s.db.Create(&b).Error)
	return a.ID, b.ID
}

func TestFinancialRecordsScopedByCompanyAndRange(t *testing.T) {
	s := New(database.OpenTest(t))
	alfa, beta := seedCompanies(t, s)

	rows := []models.FinancialRecord{
		{CompanyID: alfa, Date: day(2025, time.March, 1), Revenue: 1000, Expenses: 400, Category: "sales"},
		{CompanyID: alfa, Date: day(2025, time.January, 1), Revenue: 500, Category: "sales"},
		{CompanyID: alfa, Date: day(2023, time.January, 1), Revenue: 999},
		{CompanyID: beta, Date: day(2025, time.March, 1), Revenue: 7777},
	}
	require.NoError(t, s.db.Create(&rows).Error)

	got, err := s.FinancialRecords(context.Background(), alfa, day(2024, time.June, 1), day(2025, time.June, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 500.0, got[0].Revenue)
	require.Equal(t, 1000.0, got[1].Revenue)
	for _, r := range got {
		require.Equal(t, alfa, r.CompanyID)
	}
}

func TestTransactionsMapToRecords(t *testing.T) {
	s := New(database.OpenTest(t))
	alfa, _ := seedCompanies(t, s)

	rows := []models.Transaction{
		{TransactionID: "T-1", CompanyID: alfa, Name: "Fattura", Amount: decimal.RequireFromString("1200.50"), Type: models.TransactionIncome, PaymentMethod: models.PaymentBank, Date: day(2025, time.May, 2)},
		{TransactionID: "T-2", CompanyID: alfa, Name: "Affitto", Amount: decimal.RequireFromString("800"), Type: models.TransactionExpense, PaymentMethod: models.PaymentBank, Date: day(2025, time.May, 3)},
		{TransactionID: "T-3", CompanyID: alfa, Name: "Accantonamento", Amount: decimal.RequireFromString("300"), Type: models.TransactionSavings, PaymentMethod: models.PaymentBank, Date: day(2025, time.May, 4)},
	}
	require.NoError(t, s.db.Create(&rows).Error)

	got, err := s.Transactions(context.Background(), alfa, day(2025, time.January, 1), day(2025, time.December, 31))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1200.5, got[0].Revenue)
	require.Equal(t, 800.0, got[1].Expenses)
}

func TestEmployeesAndAssessments(t *testing.T) {
	s := New(database.OpenTest(t))
	alfa, beta := seedCompanies(t, s)

	anna := models.Employee{CompanyID: alfa, FirstName: "Anna", LastName: "Rossi", Department: "Sales", Salary: 30000, IsActive: true}
	other := models.Employee{CompanyID: beta, FirstName: "Luca", LastName: "Bianchi", Department: "IT", IsActive: true}
	require.NoError(t, s.db.Create(&anna).Error)
	require.NoError(t, s.db.Create(&other).Error)

	a := models.Assessment{
		CompanyID:    alfa,
		EmployeeID:   anna.ID,
		TestType:     models.TestTechnical,
		Responses:    datatypes.NewJSONSlice([]models.AssessmentAnswer{{QuestionID: "q1", Answer: "b"}}),
		OverallScore: 80,
		CompletedAt:  day(2025, time.April, 1),
	}
	require.NoError(t, s.db.Create(&a).Error)

	employees, err := s.Employees(context.Background(), alfa)
	require.NoError(t, err)
	require.Equal(t, []analytics.Employee{{ID: anna.ID, Name: "Anna Rossi", Department: "Sales", Salary: 30000, HireDate: employees[0].HireDate}}, employees)

	results, err := s.Assessments(context.Background(), alfa)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "technical", results[0].TestType)
	require.Equal(t, 80.0, results[0].Score)

	results, err = s.Assessments(context.Background(), beta)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestComposerOverStore(t *testing.T) {
	s := New(database.OpenTest(t))
	alfa, beta := seedCompanies(t, s)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.db.Create(&models.FinancialRecord{
			CompanyID: alfa,
			Date:      day(2025, time.February+time.Month(i), 5),
			Revenue:   100000,
			Expenses:  60000,
		}).Error)
	}
	require.NoError(t, s.db.Create(&models.FinancialRecord{CompanyID: beta, Date: day(2025, time.March, 5), Revenue: 1}).Error)

	now := day(2025, time.June, 15)
	c := analytics.NewComposer(s, analytics.WithClock(func() time.Time { return now }))

	got, err := c.FinancialDashboard(context.Background(), alfa, analytics.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 400000.0, got.Summary.TotalRevenue)
	require.Equal(t, 40.0, got.Summary.ProfitMargin)
	require.Len(t, got.Forecast.Points, 6)
}
