package gdpr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"doflow-backend/internal/audit"
	"doflow-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PersonalInfo struct {
	ID          uint            `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	CompanyID   uint            `json:"company_id"`
	CompanyName string          `json:"company_name"`
	IsActive    bool            `json:"is_active"`
	LastLoginAt *time.Time      `json:"last_login_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ActivityEntry struct {
	ID          uint               `json:"id"`
	CreatedAt   time.Time          `json:"created_at"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
}

type ChatEntry struct {
	SessionID string            `json:"session_id"`
	Sender    models.ChatSender `json:"sender"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

type ConductedAssessment struct {
	ID           uint            `json:"id"`
	EmployeeID   uint            `json:"employee_id"`
	TestType     models.TestType `json:"test_type"`
	OverallScore float64         `json:"overall_score"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// Export is everything stored about one user. Password hashes never leave
// the database.
type Export struct {
	PersonalInfo         PersonalInfo          `json:"personal_info"`
	ActivityLog          []ActivityEntry       `json:"activity_log"`
	ChatMessages         []ChatEntry           `json:"chat_messages"`
	AssessmentsConducted []ConductedAssessment `json:"assessments_conducted"`
	ExportedAt           time.Time             `json:"exported_at"`
	Format               string                `json:"format"`
}

func (s *Service) findUser(db *gorm.DB, companyID, userID uint) (models.User, error) {
	var user models.User
	err := db.Preload("Company").Where("id = ? AND company_id = ?", userID, companyID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, ErrUserNotFound
	}
	if err != nil {
		return user, fmt.Errorf("gdpr: load user %d: %w", userID, err)
	}
	return user, nil
}

// Export collects the personal data of a user of companyID.
func (s *Service) Export(ctx context.Context, companyID, userID uint) (Export, error) {
	db := s.db.WithContext(ctx)
	user, err := s.findUser(db, companyID, userID)
	if err != nil {
		return Export{}, err
	}

	out := Export{
		PersonalInfo: PersonalInfo{
			ID:          user.ID,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Email:       user.Email,
			Role:        user.Role,
			CompanyID:   user.CompanyID,
			IsActive:    user.IsActive,
			LastLoginAt: user.LastLoginAt,
			CreatedAt:   user.CreatedAt,
		},
		ActivityLog:          []ActivityEntry{},
		ChatMessages:         []ChatEntry{},
		AssessmentsConducted: []ConductedAssessment{},
		ExportedAt:           s.now(),
		Format:               exportFormat,
	}
	if user.Company != nil {
		out.PersonalInfo.CompanyName = user.Company.Name
	}

	var logs []models.AuditLog
	if err := db.Where("company_id = ? AND user_id = ?", companyID, userID).Order("created_at").Find(&logs).Error; err != nil {
		return Export{}, fmt.Errorf("gdpr: activity log: %w", err)
	}
	for _, l := range logs {
		out.ActivityLog = append(out.ActivityLog, ActivityEntry{
			ID:          l.ID,
			CreatedAt:   l.CreatedAt,
			EntityType:  l.EntityType,
			EntityID:    l.EntityID,
			Action:      l.Action,
			Description: l.Description,
		})
	}

	var messages []models.ChatMessage
	if err := db.Where("company_id = ? AND user_id = ?", companyID, userID).Order("created_at").Find(&messages).Error; err != nil {
		return Export{}, fmt.Errorf("gdpr: chat messages: %w", err)
	}
	for _, m := range messages {
		out.ChatMessages = append(out.ChatMessages, ChatEntry{
			SessionID: m.SessionID,
			Sender:    m.Sender,
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
		})
	}

	var assessments []models.Assessment
	if err := db.Where("company_id = ? AND conducted_by = ?", companyID, userID).Order("completed_at").Find(&assessments).Error; err != nil {
		return Export{}, fmt.Errorf("gdpr: assessments: %w", err)
	}
	for _, a := range assessments {
		out.AssessmentsConducted = append(out.AssessmentsConducted, ConductedAssessment{
			ID:           a.ID,
			EmployeeID:   a.EmployeeID,
			TestType:     a.TestType,
			OverallScore: a.OverallScore,
			CompletedAt:  a.CompletedAt,
		})
	}
	return out, nil
}

// Requester is the admin acting on a data subject request.
type Requester struct {
	UserID uint
	Name   string
}

type ErasureLog struct {
	UserID          uint      `json:"user_id"`
	ErasedAt        time.Time `json:"erased_at"`
	RetentionReason string    `json:"retention_reason,omitempty"`
	RequestedBy     uint      `json:"requested_by"`
	DataTypes       []string  `json:"data_types"`
}

// Anonymize erases a user's personal data. The account is always disabled
// and its chat history deleted. Without a legal retention reason the name and
// email are replaced and the user's name is scrubbed from the audit trail;
// the audit rows themselves stay, since they back the company's own records.
func (s *Service) Anonymize(ctx context.Context, companyID, userID uint, by Requester, retentionReason string) (ErasureLog, error) {
	if userID == by.UserID {
		return ErasureLog{}, ErrSelfErasure
	}
	retain, err := legalRetention(retentionReason)
	if err != nil {
		return ErasureLog{}, err
	}

	out := ErasureLog{
		UserID:          userID,
		ErasedAt:        s.now(),
		RetentionReason: retentionReason,
		RequestedBy:     by.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(tx, companyID, userID)
		if err != nil {
			return err
		}
		if strings.HasSuffix(user.Email, "@"+anonymizedDomain) {
			return ErrAlreadyAnonymized
		}

		updates := map[string]any{"is_active": false}
		if !retain {
			updates["first_name"] = anonymizedFirst
			updates["last_name"] = anonymizedLast
			updates["email"] = fmt.Sprintf("anonimo-%s@%s", uuid.NewString(), anonymizedDomain)
			updates["password_hash"] = disabledPassword
			updates["last_login_at"] = nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("gdpr: update user: %w", err)
		}
		if retain {
			out.DataTypes = append(out.DataTypes, "account_disabled")
		} else {
			out.DataTypes = append(out.DataTypes, "personal_info")
		}

		if err := tx.Where("company_id = ? AND user_id = ?", companyID, user.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("gdpr: delete chat messages: %w", err)
		}
		out.DataTypes = append(out.DataTypes, "chat_messages")

		if !retain {
			if err := tx.Model(&models.AuditLog{}).
				Where("company_id = ? AND user_id = ?", companyID, user.ID).
				Update("user_name", anonymizedName).Error; err != nil {
				return fmt.Errorf("gdpr: scrub audit log: %w", err)
			}
			out.DataTypes = append(out.DataTypes, "activity_log_pseudonymised")
		}

		desc := "Dati personali anonimizzati"
		if retain {
			desc = "Account disattivato, dati conservati per " + retentionReason
		}
		return audit.WriteLog(tx, audit.LogOptions{
			CompanyID:   companyID,
			UserID:      by.UserID,
			UserName:    by.Name,
			EntityType:  audit.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: desc,
		})
	})
	if err != nil {
		return ErasureLog{}, err
	}
	return out, nil
}

type Rectification struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// rectifiable maps request fields onto user columns.
var rectifiable = map[string]bool{"first_name": true, "last_name": true, "email": true}

// Rectify corrects a user's personal data. The returned log carries masked
// values only.
func (s *Service) Rectify(ctx context.Context, companyID, userID uint, by Requester, corrections map[string]string) ([]Rectification, error) {
	if len(corrections) == 0 {
		return nil, ErrNoCorrections
	}
	clean := make(map[string]string, len(corrections))
	fields := make([]string, 0, len(corrections))
	for field, value := range corrections {
		if !rectifiable[field] {
			return nil, fmt.Errorf("%w: %s", ErrNotRectifiable, field)
		}
		value = strings.TrimSpace(value)
		if field == "email" {
			value = strings.ToLower(value)
			if !strings.Contains(value, "@") {
				return nil, fmt.Errorf("%w: %s", ErrInvalidValue, field)
			}
		}
		if value == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, field)
		}
		clean[field] = value
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var out []Rectification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.findUser(tx, companyID, userID)
		if err != nil {
			return err
		}

		if email, ok := clean["email"]; ok && email != user.Email {
			var taken int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
				return fmt.Errorf("gdpr: email lookup: %w", err)
			}
			if taken > 0 {
				return ErrEmailTaken
			}
		}

		current := map[string]string{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
		}
		updates := make(map[string]any, len(fields))
		for _, f := range fields {
			if current[f] == clean[f] {
				continue
			}
			updates[f] = clean[f]
			out = append(out, Rectification{
				Field:    f,
				OldValue: MaskValue(current[f]),
				NewValue: MaskValue(clean[f]),
			})
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("gdpr: update user: %w", err)
		}

		changed := make([]string, 0, len(out))
		before := make(map[string]string, len(out))
		after := make(map[string]string, len(out))
		for _, r := range out {
			changed = append(changed, r.Field)
			before[r.Field] = r.OldValue
			after[r.Field] = r.NewValue
		}
		return audit.WriteLog(tx, audit.LogOptions{
			CompanyID:   companyID,
			UserID:      by.UserID,
			UserName:    by.Name,
			EntityType:  audit.EntityUser,
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: "Rettifica dati personali: " + strings.Join(changed, ", "),
			Before:      before,
			After:       after,
		})
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Rectification{}
	}
	return out, nil
}
