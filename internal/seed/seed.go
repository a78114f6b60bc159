// Package seed fills an empty database with a demo company.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"doflow-backend/internal/cashflow"
	"doflow-backend/internal/hr"
	"doflow-backend/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAlreadySeeded is returned when the admin email is already registered.
var ErrAlreadySeeded = errors.New("seed: demo admin already exists")

type Options struct {
	AdminEmail    string
	AdminPassword string
	Months        int
}

func DefaultOptions() Options {
	return Options{
		AdminEmail:    "admin@demo.doflow.it",
		AdminPassword: "demo1234",
		Months:        6,
	}
}

type Result struct {
	CompanyID    uint
	Users        int
	Employees    int
	Records      int
	Transactions int
	Assessments  int
}

type employeeSeed struct {
	first, last, position, department string
	salary                            float64
	hiredMonthsAgo                    int
}

var employees = []employeeSeed{
	{"Luca", "Ferrari", "Responsabile vendite", "Vendite", 42000, 40},
	{"Sara", "Romano", "Account manager", "Vendite", 33000, 18},
	{"Paolo", "Colombo", "Contabile", "Amministrazione", 31000, 30},
	{"Elena", "Ricci", "Sviluppatrice backend", "Sviluppo", 38000, 14},
	{"Davide", "Marino", "Sviluppatore frontend", "Sviluppo", 36000, 9},
	{"Chiara", "Greco", "Assistente HR", "Amministrazione", 28000, 4},
}

// Run creates the demo tenant inside one transaction. Amounts are derived
// from the month offset so repeated runs on fresh databases match.
func Run(ctx context.Context, db *gorm.DB, now time.Time, opts Options) (Result, error) {
	if opts.Months < 1 {
		return Result{}, fmt.Errorf("seed: months must be >= 1, got %d", opts.Months)
	}

	var exist int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", opts.AdminEmail).Count(&exist).Error; err != nil {
		return Result{}, fmt.Errorf("seed: admin lookup: %w", err)
	}
	if exist > 0 {
		return Result{}, ErrAlreadySeeded
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("seed: hash password: %w", err)
	}

	var res Result
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company := models.Company{
			Name:     "Demo Srl",
			Industry: "Servizi",
			Address:  "Via Roma 1, Milano",
			Settings: datatypes.NewJSONType(models.DefaultCompanySettings()),
			IsActive: true,
		}
		if err := tx.Create(&company).Error; err != nil {
			return fmt.Errorf("company: %w", err)
		}
		res.CompanyID = company.ID

		users := []models.User{
			{CompanyID: company.ID, FirstName: "Anna", LastName: "Conti", Email: opts.AdminEmail, PasswordHash: string(hash), Role: models.RoleAdmin, IsActive: true},
			{CompanyID: company.ID, FirstName: "Marco", LastName: "Gallo", Email: "manager." + opts.AdminEmail, PasswordHash: string(hash), Role: models.RoleManager, IsActive: true},
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("users: %w", err)
		}
		res.Users = len(users)
		admin := users[0]

		staff, err := createEmployees(tx, company.ID, now)
		if err != nil {
			return err
		}
		res.Employees = len(staff)

		if res.Records, err = createRecords(tx, company.ID, admin.ID, now, opts.Months); err != nil {
			return err
		}
		if res.Transactions, err = createLedger(tx, company.ID, admin.ID, now, opts.Months); err != nil {
			return err
		}
		if res.Assessments, err = createAssessments(tx, company.ID, admin.ID, staff, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	return res, nil
}

func monthStart(now time.Time, back int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -back, 0)
}

func createEmployees(tx *gorm.DB, companyID uint, now time.Time) ([]models.Employee, error) {
	rows := make([]models.Employee, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, models.Employee{
			CompanyID:  companyID,
			FirstName:  e.first,
			LastName:   e.last,
			Email:      fmt.Sprintf("%s.%s@demo.doflow.it", strings.ToLower(e.first), strings.ToLower(e.last)),
			Position:   e.position,
			Department: e.department,
			HireDate:   monthStart(now, e.hiredMonthsAgo),
			Salary:     e.salary,
			IsActive:   true,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("employees: %w", err)
	}
	return rows, nil
}

// createRecords writes two records per month with revenue growing over time.
func createRecords(tx *gorm.DB, companyID, userID uint, now time.Time, months int) (int, error) {
	var rows []models.FinancialRecord
	for back := months - 1; back >= 0; back-- {
		step := float64(months - 1 - back)
		start := monthStart(now, back)
		rows = append(rows,
			models.FinancialRecord{
				CompanyID:   companyID,
				Date:        start.AddDate(0, 0, 4),
				Revenue:     9000 + 600*step,
				Expenses:    5200 + 250*step,
				Category:    "vendite",
				Description: "Incassi prima quindicina",
				CreatedBy:   userID,
			},
			models.FinancialRecord{
				CompanyID:   companyID,
				Date:        start.AddDate(0, 0, 19),
				Revenue:     4000 + 300*step,
				Expenses:    2600 + 100*step,
				Category:    "servizi",
				Description: "Consulenze e canoni",
				CreatedBy:   userID,
			},
		)
	}

	// the current month may not have reached day 20 yet
	kept := rows[:0]
	for _, r := range rows {
		if !r.Date.After(now) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(&kept, 100).Error; err != nil {
		return 0, fmt.Errorf("financial records: %w", err)
	}
	return len(kept), nil
}

func createLedger(tx *gorm.DB, companyID, userID uint, now time.Time, months int) (int, error) {
	clients := []models.Client{
		{CompanyID: companyID, Name: "Rossi Costruzioni", Email: "amministrazione@rossi.example", VATNumber: "IT01234567890"},
		{CompanyID: companyID, Name: "Bar Centrale", Phone: "02 1234567"},
	}
	if err := tx.Create(&clients).Error; err != nil {
		return 0, fmt.Errorf("clients: %w", err)
	}

	accounts := []models.Account{
		{CompanyID: companyID, Name: "Conto principale", Type: models.AccountTypeBank, Balance: decimal.NewFromInt(25000), BankName: "Banca Demo", AccountNumber: "IT60X0542811101000000123456", IsActive: true},
		{CompanyID: companyID, Name: "Cassa", Type: models.AccountTypeCash, Balance: decimal.NewFromInt(800), IsActive: true},
		{CompanyID: companyID, Name: "Carta aziendale", Type: models.AccountTypeCard, Balance: decimal.NewFromInt(1500), IsActive: true},
	}
	if err := tx.Create(&accounts).Error; err != nil {
		return 0, fmt.Errorf("accounts: %w", err)
	}

	var rows []models.Transaction
	for back := months - 1; back >= 0; back-- {
		start := monthStart(now, back)
		step := int64(months - 1 - back)
		add := func(day int, name string, amount int64, t models.TransactionType, method models.PaymentMethod, category string, client, account *uint) {
			date := start.AddDate(0, 0, day-1)
			if date.After(now) {
				return
			}
			rows = append(rows, models.Transaction{
				TransactionID: cashflow.NewTransactionID(),
				CompanyID:     companyID,
				UserID:        userID,
				Name:          name,
				Amount:        decimal.NewFromInt(amount),
				Type:          t,
				Category:      category,
				PaymentMethod: method,
				Date:          date,
				ClientID:      client,
				AccountID:     account,
			})
		}
		add(3, "Fattura Rossi Costruzioni", 4200+150*step, models.TransactionIncome, models.PaymentBank, "vendite", &clients[0].ID, &accounts[0].ID)
		add(10, "Incasso Bar Centrale", 650+40*step, models.TransactionIncome, models.PaymentCash, "vendite", &clients[1].ID, &accounts[1].ID)
		add(12, "Affitto ufficio", 1800, models.TransactionExpense, models.PaymentBank, "affitto", nil, &accounts[0].ID)
		add(18, "Materiale di consumo", 240+10*step, models.TransactionExpense, models.PaymentCard, "forniture", nil, &accounts[2].ID)
		add(25, "Accantonamento", 500, models.TransactionSavings, models.PaymentBank, "risparmio", nil, &accounts[0].ID)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
		return 0, fmt.Errorf("transactions: %w", err)
	}
	return len(rows), nil
}

// createAssessments gives every employee two tests with a varying number of
// answered questions, scored the same way the API scores them.
func createAssessments(tx *gorm.DB, companyID, conductedBy uint, staff []models.Employee, now time.Time) (int, error) {
	types := hr.TestTypes()
	scorer := hr.CompletionScorer{}

	var rows []models.Assessment
	for i, e := range staff {
		for j := 0; j < 2; j++ {
			test := types[(i+j)%len(types)]
			answered := test.Questions - (i*3+j*2)%(test.Questions/2+1)

			answers := make([]models.AssessmentAnswer, 0, answered)
			for q := 1; q <= answered; q++ {
				answers = append(answers, models.AssessmentAnswer{
					QuestionID: "q" + strconv.Itoa(q),
					Answer:     strconv.Itoa(q % 4),
				})
			}
			score, insights := scorer.Score(test, answers)

			rows = append(rows, models.Assessment{
				CompanyID:    companyID,
				EmployeeID:   e.ID,
				TestType:     test.ID,
				Responses:    datatypes.NewJSONSlice(answers),
				OverallScore: score,
				Insights:     datatypes.NewJSONSlice(insights),
				CompletedAt:  now.AddDate(0, 0, -(i*7 + j*30)),
				ConductedBy:  conductedBy,
			})
		}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("assessments: %w", err)
	}
	return len(rows), nil
}
