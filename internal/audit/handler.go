package audit

import (
	"errors"
	"strconv"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

const maskerKey = "audit_masker"

// UseMasker makes Record redact the images it stores with m.
func UseMasker(m Masker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(maskerKey, m)
		return c.Next()
	}
}

// Record writes an audit log for the current actor. A failed write is
// logged and does not fail the request.
func Record(c *fiber.Ctx, db *gorm.DB, actor auth.Actor, entityType string, entityID uint, action models.AuditAction, description string, before, after any) {
	masker, _ := c.Locals(maskerKey).(Masker)
	err := WriteLog(db, LogOptions{
		CompanyID:   actor.CompanyID,
		UserID:      actor.UserID,
		UserName:    auth.UserName(db, actor.UserID),
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
		Masker:      masker,
	})
	if err != nil {
		logger.From(c).Warn().Err(err).
			Str("entity_type", entityType).
			Uint("entity_id", entityID).
			Msg("audit log write failed")
	}
}

func queryUint(c *fiber.Ctx, key string) (uint, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// GET /api/audit-logs?entity_type=transaction&entity_id=1&user_id=2&limit=100
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.CompanyID(c)
		if err != nil {
			return err
		}

		dbq := db.Model(&models.AuditLog{}).Where("company_id = ?", companyID)

		if uid, ok := queryUint(c, "user_id"); ok {
			dbq = dbq.Where("user_id = ?", uid)
		}
		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if eid, ok := queryUint(c, "entity_id"); ok {
			dbq = dbq.Where("entity_id = ?", eid)
		}

		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossibile elencare i log")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			var undoneAtStr *string
			if log.UndoneAt != nil {
				formatted := log.UndoneAt.Format("2006-01-02 15:04:05")
				undoneAtStr = &formatted
			}

			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				IsUndone:    log.IsUndone,
				UndoneBy:    log.UndoneBy,
				UndoneAt:    undoneAtStr,
			})
		}

		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := c.ParamsInt("id")
		if err != nil || logID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID log non valido")
		}

		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		err = UndoLog(db, actor.CompanyID, uint(logID), actor.UserID, auth.UserName(db, actor.UserID))
		switch {
		case err == nil:
		case errors.Is(err, ErrLogNotFound), errors.Is(err, ErrForeignCompany):
			return fiber.NewError(fiber.StatusNotFound, "Log non trovato")
		case errors.Is(err, ErrAlreadyUndone):
			return fiber.NewError(fiber.StatusConflict, "Operazione già annullata")
		case errors.Is(err, ErrNotUndoable), errors.Is(err, ErrUnknownEntity):
			return fiber.NewError(fiber.StatusBadRequest, "Questa operazione non può essere annullata")
		default:
			logger.From(c).Error().Err(err).Int("log_id", logID).Msg("undo failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Annullamento non riuscito")
		}

		return c.JSON(fiber.Map{
			"message": "Operazione annullata",
		})
	}
}
