package models

import (
	"time"

	"gorm.io/datatypes"
)

type ChatSender string

const (
	SenderUser ChatSender = "user"
	SenderAI   ChatSender = "ai"
)

type ChatMessage struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CompanyID uint              `gorm:"index;not null" json:"company_id"`
	UserID    uint              `gorm:"index" json:"user_id"`
	SessionID string            `gorm:"size:64;index;not null" json:"session_id"`
	Sender    ChatSender        `gorm:"size:10;not null" json:"sender"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Category  string            `gorm:"size:30" json:"category"`
	Context   datatypes.JSONMap `json:"context"`
	CreatedAt time.Time         `json:"created_at"`
}
