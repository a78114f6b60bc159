package chat

import (
	"sort"
	"strings"
	"time"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"
	"doflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxMessageLength = 2000
	previewLength    = 50
)

type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"` // empty starts a new session
}

type MessageResponse struct {
	ID        uint              `json:"id"`
	Sender    models.ChatSender `json:"sender"`
	Message   string            `json:"message"`
	Category  string            `json:"category,omitempty"`
	Context   map[string]any    `json:"context,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type SendMessageResponse struct {
	SessionID   string          `json:"session_id"`
	UserMessage MessageResponse `json:"user_message"`
	AIResponse  MessageResponse `json:"ai_response"`
}

type SessionSummary struct {
	SessionID    string `json:"session_id"`
	LastMessage  string `json:"last_message"`
	LastActivity string `json:"last_activity"`
	MessageCount int    `json:"message_count"`
}

func toMessageResponse(m models.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Sender:    m.Sender,
		Message:   m.Message,
		Category:  m.Category,
		Context:   m.Context,
		Timestamp: m.CreatedAt.Format(time.RFC3339),
	}
}

// POST /api/chat/message
func SendMessageHandler(db *gorm.DB, responder *Responder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var body SendMessageRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}
		body.Message = strings.TrimSpace(body.Message)
		if body.Message == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Il messaggio non può essere vuoto")
		}
		if len(body.Message) > maxMessageLength {
			return fiber.NewError(fiber.StatusBadRequest, "Messaggio troppo lungo")
		}
		if body.SessionID == "" {
			body.SessionID = uuid.NewString()
		}

		reply := responder.Respond(body.Message)

		userMsg := models.ChatMessage{
			CompanyID: actor.CompanyID,
			UserID:    actor.UserID,
			SessionID: body.SessionID,
			Sender:    models.SenderUser,
			Message:   body.Message,
		}
		aiMsg := models.ChatMessage{
			CompanyID: actor.CompanyID,
			UserID:    actor.UserID,
			SessionID: body.SessionID,
			Sender:    models.SenderAI,
			Message:   reply.Text,
			Category:  string(reply.Category),
			Context:   datatypes.JSONMap(reply.Context),
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&userMsg).Error; err != nil {
				return err
			}
			return tx.Create(&aiMsg).Error
		})
		if err != nil {
			logger.From(c).Error().Err(err).Str("session_id", body.SessionID).Msg("chat message not stored")
			return fiber.NewError(fiber.StatusInternalServerError, "Messaggio non salvato")
		}

		logger.From(c).Debug().
			Str("session_id", body.SessionID).
			Str("category", string(reply.Category)).
			Msg("chat reply")

		return c.JSON(SendMessageResponse{
			SessionID:   body.SessionID,
			UserMessage: toMessageResponse(userMsg),
			AIResponse:  toMessageResponse(aiMsg),
		})
	}
}

// GET /api/chat/history/:session_id
func HistoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		sessionID := c.Params("session_id")

		var rows []models.ChatMessage
		if err := db.Where("company_id = ? AND user_id = ? AND session_id = ?", actor.CompanyID, actor.UserID, sessionID).
			Order("created_at ASC").Order("id ASC").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Cronologia non disponibile")
		}

		messages := make([]MessageResponse, 0, len(rows))
		for _, m := range rows {
			messages = append(messages, toMessageResponse(m))
		}
		return c.JSON(fiber.Map{
			"session_id": sessionID,
			"messages":   messages,
			"total":      len(messages),
		})
	}
}

// Sessions folds messages, oldest first, into one summary per session
// ordered by most recent activity.
func Sessions(rows []models.ChatMessage) []SessionSummary {
	type entry struct {
		summary SessionSummary
		last    time.Time
	}
	index := map[string]int{}
	entries := make([]entry, 0)

	for _, m := range rows {
		i, ok := index[m.SessionID]
		if !ok {
			i = len(entries)
			index[m.SessionID] = i
			entries = append(entries, entry{summary: SessionSummary{SessionID: m.SessionID}})
		}
		e := &entries[i]
		e.summary.MessageCount++
		e.summary.LastMessage = preview(m.Message)
		e.summary.LastActivity = m.CreatedAt.Format(time.RFC3339)
		e.last = m.CreatedAt
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].last.After(entries[j].last) })

	out := make([]SessionSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.summary)
	}
	return out
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}

// GET /api/chat/sessions
func SessionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}

		var rows []models.ChatMessage
		if err := db.Select("id", "session_id", "message", "created_at").
			Where("company_id = ? AND user_id = ?", actor.CompanyID, actor.UserID).
			Order("created_at ASC").Order("id ASC").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Sessioni non disponibili")
		}
		return c.JSON(Sessions(rows))
	}
}
