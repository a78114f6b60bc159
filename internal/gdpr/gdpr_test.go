package gdpr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/auth"
	"doflow-backend/internal/database"
	"doflow-backend/internal/models"
	"doflow-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func newService(db *gorm.DB) *Service {
	return New(db, WithClock(func() time.Time { return fixedNow }))
}

// seedMember adds a member with some activity to the actor's company.
func seedMember(t *testing.T, db *gorm.DB, admin auth.Actor) models.User {
	t.Helper()

	user := models.User{
		CompanyID: admin.CompanyID,
		FirstName: "Marco",
		LastName:  "Bianchi",
		Email:     "marco.bianchi@example.com",
		Role:      models.RoleManager,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, db.Create(&models.AuditLog{
		CompanyID:   admin.CompanyID,
		UserID:      user.ID,
		UserName:    user.FullName(),
		EntityType:  audit.EntityTransaction,
		EntityID:    7,
		Action:      models.AuditActionCreate,
		Description: "Creata transazione",
	}).Error)

	for _, m := range []models.ChatMessage{
		{CompanyID: admin.CompanyID, UserID: user.ID, SessionID: "s1", Sender: models.SenderUser, Message: "Come va la cassa?"},
		{CompanyID: admin.CompanyID, UserID: user.ID, SessionID: "s1", Sender: models.SenderAI, Message: "Saldo positivo"},
	} {
		require.NoError(t, db.Create(&m).Error)
	}

	employee := models.Employee{CompanyID: admin.CompanyID, FirstName: "Luca", LastName: "Verdi", Department: "Vendite"}
	require.NoError(t, db.Create(&employee).Error)
	require.NoError(t, db.Create(&models.Assessment{
		CompanyID:    admin.CompanyID,
		EmployeeID:   employee.ID,
		TestType:     models.TestTechnical,
		OverallScore: 80,
		CompletedAt:  fixedNow.AddDate(0, -1, 0),
		ConductedBy:  user.ID,
	}).Error)
	return user
}

func requester(a auth.Actor) Requester {
	return Requester{UserID: a.UserID, Name: "Anna Rossi"}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"marco.bianchi@example.com", "ma***@example.com"},
		{"m@example.com", "m***@example.com"},
		{"IT60X0542811101000000123456", "IT***56"},
		{"Luca", "***"},
		{42000.0, "***"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, MaskValue(tt.in), tt.in)
	}
}

func TestMaskImage(t *testing.T) {
	s := New(nil)

	image := map[string]any{"first_name": "Luca", "email": "luca@example.com", "salary": 42000.0}
	masked := s.MaskImage(audit.EntityEmployee, image)
	require.Equal(t, []string{"email", "salary"}, masked)
	require.Equal(t, "lu***@example.com", image["email"])
	require.Equal(t, "***", image["salary"])
	require.Equal(t, "Luca", image["first_name"])

	image = map[string]any{"email": "", "salary": 0.0}
	require.Empty(t, s.MaskImage(audit.EntityEmployee, image))
	require.Empty(t, s.MaskImage(audit.EntityFinancialRecord, map[string]any{"amount": 10.0}))
}

func TestExport(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	user := seedMember(t, db, admin)

	out, err := newService(db).Export(context.Background(), admin.CompanyID, user.ID)
	require.NoError(t, err)

	require.Equal(t, "marco.bianchi@example.com", out.PersonalInfo.Email)
	require.Equal(t, "Alfa Srl", out.PersonalInfo.CompanyName)
	require.Equal(t, models.RoleManager, out.PersonalInfo.Role)
	require.Len(t, out.ActivityLog, 1)
	require.Equal(t, "Creata transazione", out.ActivityLog[0].Description)
	require.Len(t, out.ChatMessages, 2)
	require.Len(t, out.AssessmentsConducted, 1)
	require.Equal(t, 80.0, out.AssessmentsConducted[0].OverallScore)
	require.Equal(t, fixedNow, out.ExportedAt)
	require.Equal(t, "JSON", out.Format)

	_, err = newService(db).Export(context.Background(), admin.CompanyID+1, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAnonymize(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	user := seedMember(t, db, admin)
	s := newService(db)

	out, err := s.Anonymize(context.Background(), admin.CompanyID, user.ID, requester(admin), "")
	require.NoError(t, err)
	require.Equal(t, []string{"personal_info", "chat_messages", "activity_log_pseudonymised"}, out.DataTypes)
	require.Equal(t, fixedNow, out.ErasedAt)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, "Utente", got.FirstName)
	require.Equal(t, "Anonimo", got.LastName)
	require.True(t, strings.HasSuffix(got.Email, "@anonymized.invalid"), got.Email)
	require.Equal(t, "!", got.PasswordHash)
	require.False(t, got.IsActive)

	var chats int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("user_id = ?", user.ID).Count(&chats).Error)
	require.Zero(t, chats)

	var activity models.AuditLog
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&activity).Error)
	require.Equal(t, "Utente anonimo", activity.UserName)

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", audit.EntityUser, user.ID).First(&entry).Error)
	require.Equal(t, admin.UserID, entry.UserID)
	require.Equal(t, "Dati personali anonimizzati", entry.Description)

	// assessments belong to the company and stay
	var assessments int64
	require.NoError(t, db.Model(&models.Assessment{}).Where("conducted_by = ?", user.ID).Count(&assessments).Error)
	require.EqualValues(t, 1, assessments)

	_, err = s.Anonymize(context.Background(), admin.CompanyID, user.ID, requester(admin), "")
	require.ErrorIs(t, err, ErrAlreadyAnonymized)
}

func TestAnonymizeWithRetention(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	user := seedMember(t, db, admin)

	out, err := newService(db).Anonymize(context.Background(), admin.CompanyID, user.ID, requester(admin), RetentionEmployment)
	require.NoError(t, err)
	require.Equal(t, []string{"account_disabled", "chat_messages"}, out.DataTypes)
	require.Equal(t, RetentionEmployment, out.RetentionReason)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, "Marco", got.FirstName)
	require.Equal(t, "marco.bianchi@example.com", got.Email)
	require.False(t, got.IsActive)

	var activity models.AuditLog
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&activity).Error)
	require.Equal(t, "Marco Bianchi", activity.UserName)
}

func TestAnonymizeRejects(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	other := testutil.SeedCompany(t, db, "Beta Srl")
	user := seedMember(t, db, admin)
	s := newService(db)
	ctx := context.Background()

	_, err := s.Anonymize(ctx, admin.CompanyID, admin.UserID, requester(admin), "")
	require.ErrorIs(t, err, ErrSelfErasure)

	_, err = s.Anonymize(ctx, admin.CompanyID, user.ID, requester(admin), "marketing")
	require.ErrorIs(t, err, ErrRetentionReason)

	_, err = s.Anonymize(ctx, other.CompanyID, user.ID, requester(other), "")
	require.ErrorIs(t, err, ErrUserNotFound)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.True(t, got.IsActive)
}

func TestRectify(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	user := seedMember(t, db, admin)
	s := newService(db)
	ctx := context.Background()

	changes, err := s.Rectify(ctx, admin.CompanyID, user.ID, requester(admin), map[string]string{
		"last_name":  "Bianchi",
		"email":      " Marco.B@Example.com ",
		"first_name": "Marcello",
	})
	require.NoError(t, err)
	require.Equal(t, []Rectification{
		{Field: "email", OldValue: "ma***@example.com", NewValue: "ma***@example.com"},
		{Field: "first_name", OldValue: "Ma***co", NewValue: "Ma***lo"},
	}, changes)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, "marco.b@example.com", got.Email)
	require.Equal(t, "Marcello", got.FirstName)

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", audit.EntityUser, user.ID).First(&entry).Error)
	require.Equal(t, "Rettifica dati personali: email, first_name", entry.Description)
	require.NotContains(t, string(entry.AfterData), "marco.b@example.com")

	changes, err = s.Rectify(ctx, admin.CompanyID, user.ID, requester(admin), map[string]string{"first_name": "Marcello"})
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestRectifyRejects(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	user := seedMember(t, db, admin)
	s := newService(db)
	ctx := context.Background()

	var taken models.User
	require.NoError(t, db.First(&taken, admin.UserID).Error)

	tests := []struct {
		name        string
		corrections map[string]string
		want        error
	}{
		{"empty", map[string]string{}, ErrNoCorrections},
		{"role", map[string]string{"role": "admin"}, ErrNotRectifiable},
		{"blank name", map[string]string{"first_name": "  "}, ErrInvalidValue},
		{"bad email", map[string]string{"email": "marco"}, ErrInvalidValue},
		{"email in use", map[string]string{"email": taken.Email}, ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Rectify(ctx, admin.CompanyID, user.ID, requester(admin), tt.corrections)
			require.ErrorIs(t, err, tt.want)
		})
	}

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, "marco.bianchi@example.com", got.Email)
}

func newHandlerApp(db *gorm.DB, actor auth.Actor) *fiber.App {
	s := newService(db)
	app := testutil.NewApp(actor)
	app.Get("/gdpr/export", ExportOwnHandler(s))
	app.Get("/gdpr/users/:id/export", ExportUserHandler(s))
	app.Post("/gdpr/users/:id/anonymize", AnonymizeHandler(db, s))
	app.Put("/gdpr/users/:id/rectify", RectifyHandler(db, s))
	return app
}

func TestHandlers(t *testing.T) {
	db := database.OpenTest(t)
	admin := testutil.SeedCompany(t, db, "Alfa Srl")
	user := seedMember(t, db, admin)
	app := newHandlerApp(db, admin)
	userPath := fmt.Sprintf("/gdpr/users/%d", user.ID)

	var own Export
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, "/gdpr/export", nil, &own))
	require.Equal(t, admin.UserID, own.PersonalInfo.ID)

	var theirs Export
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodGet, userPath+"/export", nil, &theirs))
	require.Len(t, theirs.ChatMessages, 2)

	var errBody map[string]string
	require.Equal(t, http.StatusNotFound, testutil.Do(t, app, http.MethodGet, "/gdpr/users/999/export", nil, &errBody))
	require.Equal(t, "Utente non trovato", errBody["error"])
	require.Equal(t, http.StatusBadRequest, testutil.Do(t, app, http.MethodGet, "/gdpr/users/abc/export", nil, nil))

	var rectified struct {
		Changes []Rectification `json:"changes"`
	}
	status := testutil.Do(t, app, http.MethodPut, userPath+"/rectify", RectifyRequest{
		Corrections: map[string]string{"last_name": "Neri"},
	}, &rectified)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []Rectification{{Field: "last_name", OldValue: "Bi***hi", NewValue: "***"}}, rectified.Changes)

	status = testutil.Do(t, app, http.MethodPut, userPath+"/rectify", RectifyRequest{
		Corrections: map[string]string{"role": "admin"},
	}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Campo non rettificabile", errBody["error"])

	status = testutil.Do(t, app, http.MethodPost, fmt.Sprintf("/gdpr/users/%d/anonymize", admin.UserID), AnonymizeRequest{}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)

	status = testutil.Do(t, app, http.MethodPost, userPath+"/anonymize", AnonymizeRequest{RetentionReason: "boh"}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Motivo di conservazione non valido", errBody["error"])

	var erased struct {
		Erasure ErasureLog `json:"erasure"`
	}
	require.Equal(t, http.StatusOK, testutil.Do(t, app, http.MethodPost, userPath+"/anonymize", nil, &erased))
	require.Equal(t, user.ID, erased.Erasure.UserID)
	require.Contains(t, erased.Erasure.DataTypes, "personal_info")

	status = testutil.Do(t, app, http.MethodPost, userPath+"/anonymize", nil, &errBody)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Utente già anonimizzato", errBody["error"])
}
