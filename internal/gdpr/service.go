// Package gdpr serves the data subject rights of users (access, rectification,
// erasure) and redacts personal data written to the audit trail.
package gdpr

import (
	"errors"
	"strings"
	"time"

	"doflow-backend/internal/audit"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("gdpr: user not found")
	ErrSelfErasure       = errors.New("gdpr: users cannot erase their own account")
	ErrAlreadyAnonymized = errors.New("gdpr: user already anonymised")
	ErrRetentionReason   = errors.New("gdpr: unknown retention reason")
	ErrNotRectifiable    = errors.New("gdpr: field cannot be rectified")
	ErrNoCorrections     = errors.New("gdpr: no corrections given")
	ErrInvalidValue      = errors.New("gdpr: invalid value")
	ErrEmailTaken        = errors.New("gdpr: email already registered")
)

// Retention reasons that keep personal data after an erasure request.
const (
	RetentionTax        = "tax_compliance"
	RetentionEmployment = "employment_law"
	RetentionContract   = "contract_fulfillment"
	RetentionLitigation = "legal_proceedings"
)

func legalRetention(reason string) (bool, error) {
	switch reason {
	case "":
		return false, nil
	case RetentionTax, RetentionEmployment, RetentionContract, RetentionLitigation:
		return true, nil
	}
	return false, ErrRetentionReason
}

// sensitiveFields are redacted from audit images, per entity type.
var sensitiveFields = map[string][]string{
	audit.EntityEmployee: {"email", "salary"},
	audit.EntityClient:   {"email", "phone"},
	audit.EntityAccount:  {"account_number"},
	audit.EntityUser:     {"email"},
}

const (
	anonymizedDomain = "anonymized.invalid"
	anonymizedName   = "Utente anonimo"
	anonymizedFirst  = "Utente"
	anonymizedLast   = "Anonimo"
	disabledPassword = "!"
	exportFormat     = "JSON"
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaskImage implements audit.Masker.
func (s *Service) MaskImage(entityType string, image map[string]any) []string {
	var masked []string
	for _, field := range sensitiveFields[entityType] {
		v, ok := image[field]
		if !ok || isZero(v) {
			continue
		}
		image[field] = MaskValue(v)
		masked = append(masked, field)
	}
	return masked
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	}
	return false
}

// MaskValue keeps enough of a value to recognise it: the first two characters
// and the domain of an email, the first and last two characters of a longer
// string. Anything else becomes "***".
func MaskValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return "***"
	}
	if at := strings.LastIndex(s, "@"); at >= 0 {
		local := []rune(s[:at])
		if len(local) > 2 {
			local = local[:2]
		}
		return string(local) + "***" + s[at:]
	}
	r := []rune(s)
	if len(r) > 4 {
		return string(r[:2]) + "***" + string(r[len(r)-2:])
	}
	return "***"
}
