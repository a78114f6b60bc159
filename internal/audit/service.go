package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"doflow-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EntityFinancialRecord = "financial_record"
	EntityTransaction     = "transaction"
	EntityAccount         = "account"
	EntityEmployee        = "employee"
	EntityClient          = "client"
	EntityUser            = "user"
)

// maskedKey lists, inside a stored image, the fields a Masker redacted.
const maskedKey = "_masked"

var (
	ErrLogNotFound    = errors.New("audit log not found")
	ErrAlreadyUndone  = errors.New("operation already undone")
	ErrNotUndoable    = errors.New("operation cannot be undone")
	ErrUnknownEntity  = errors.New("unknown entity type")
	ErrForeignCompany = errors.New("record belongs to another company")
)

// Masker redacts personal data in a before/after image before it is stored
// and returns the keys it changed.
type Masker interface {
	MaskImage(entityType string, image map[string]any) []string
}

type LogOptions struct {
	CompanyID   uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
	Masker      Masker
}

func marshalOrNull(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

// snapshot marshals v and, when a masker is set, redacts it. Images the
// masker leaves untouched are stored as marshalled.
func snapshot(v any, entityType string, m Masker) datatypes.JSON {
	raw := marshalOrNull(v)
	if m == nil || v == nil {
		return raw
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return raw
	}
	masked := m.MaskImage(entityType, fields)
	if len(masked) == 0 {
		return raw
	}
	fields[maskedKey] = masked
	return marshalOrNull(fields)
}

// unmask strips the redacted fields from an image so an undo never writes
// placeholder values back. It returns the stripped field names.
func unmask(data datatypes.JSON) (datatypes.JSON, []string, error) {
	var head struct {
		Masked []string `json:"_masked"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, nil, err
	}
	if len(head.Masked) == 0 {
		return data, nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, err
	}
	delete(fields, maskedKey)
	for _, k := range head.Masked {
		delete(fields, k)
	}
	clean, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, err
	}
	return datatypes.JSON(clean), head.Masked, nil
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	log := models.AuditLog{
		CompanyID:   opts.CompanyID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before, opts.EntityType, opts.Masker),
		AfterData:   snapshot(opts.After, opts.EntityType, opts.Masker),
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("audit log not saved: %w", err)
	}
	return nil
}

// UndoLog reverts the change recorded by a log of companyID and records the
// undo as a new log entry. Everything runs in one transaction.
func UndoLog(db *gorm.DB, companyID, logID, userID uint, userName string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, "id = ?", logID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLogNotFound
			}
			return err
		}
		if log.CompanyID != companyID {
			return ErrForeignCompany
		}
		if log.IsUndone {
			return ErrAlreadyUndone
		}

		var err error
		switch log.Action {
		case models.AuditActionCreate:
			err = deleteEntity(tx, companyID, log.EntityType, log.EntityID)
		case models.AuditActionUpdate:
			err = restoreEntity(tx, companyID, log.EntityType, log.EntityID, log.BeforeData)
		case models.AuditActionDelete:
			err = recreateEntity(tx, companyID, log.EntityType, log.BeforeData)
		default:
			return ErrNotUndoable
		}
		if err != nil {
			return fmt.Errorf("undo %s %d: %w", log.EntityType, log.EntityID, err)
		}

		now := time.Now().UTC()
		log.IsUndone = true
		log.UndoneBy = &userID
		log.UndoneAt = &now
		if err := tx.Save(&log).Error; err != nil {
			return fmt.Errorf("audit log not updated: %w", err)
		}

		undo := models.AuditLog{
			CompanyID:   companyID,
			UserID:      userID,
			UserName:    userName,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Annullato: %s", log.Description),
			BeforeData:  log.AfterData,
			AfterData:   log.BeforeData,
			Undone:      true,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("undo log not saved: %w", err)
		}
		return nil
	})
}

// entity returns an empty model for the entity type.
func entity(entityType string) (any, error) {
	switch entityType {
	case EntityFinancialRecord:
		return &models.FinancialRecord{}, nil
	case EntityTransaction:
		return &models.Transaction{}, nil
	case EntityAccount:
		return &models.Account{}, nil
	case EntityEmployee:
		return &models.Employee{}, nil
	case EntityClient:
		return &models.Client{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
}

func deleteEntity(tx *gorm.DB, companyID uint, entityType string, entityID uint) error {
	m, err := entity(entityType)
	if err != nil {
		return err
	}
	return tx.Where("id = ? AND company_id = ?", entityID, companyID).Delete(m).Error
}

// recreateEntity restores a deleted row with its original primary key.
// Redacted fields come back empty.
func recreateEntity(tx *gorm.DB, companyID uint, entityType string, data datatypes.JSON) error {
	m, err := entity(entityType)
	if err != nil {
		return err
	}
	data, _, err = unmask(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	if err := checkCompany(m, companyID); err != nil {
		return err
	}
	return tx.Create(m).Error
}

// restoreEntity writes the stored before-image back over the row. Redacted
// fields keep their current value.
func restoreEntity(tx *gorm.DB, companyID uint, entityType string, entityID uint, data datatypes.JSON) error {
	m, err := entity(entityType)
	if err != nil {
		return err
	}
	data, masked, err := unmask(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	if err := checkCompany(m, companyID); err != nil {
		return err
	}
	omit := append([]string{"created_at"}, masked...)
	return tx.Model(m).Where("id = ? AND company_id = ?", entityID, companyID).Select("*").Omit(omit...).Updates(m).Error
}

func checkCompany(m any, companyID uint) error {
	var owner uint
	switch v := m.(type) {
	case *models.FinancialRecord:
		owner = v.CompanyID
	case *models.Transaction:
		owner = v.CompanyID
	case *models.Account:
		owner = v.CompanyID
	case *models.Employee:
		owner = v.CompanyID
	case *models.Client:
		owner = v.CompanyID
	}
	if owner != companyID {
		return ErrForeignCompany
	}
	return nil
}
