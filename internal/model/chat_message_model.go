package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role          string    `gorm:"type:varchar(50);not null"`
	Content       string    `gorm:"type:text;not null;default:''"`
	Finalized     bool      `gorm:"not null;default:false"`

	UpCount   int `gorm:"not null;default:0"`
	DownCount int `gorm:"not null;default:0"`

	// Markers keeps the raw citation markers seen while streaming.
	Markers datatypes.JSON `gorm:"type:jsonb"`

	// Position is the insertion index inside the session; conversation
	// order is (chat_session_id, position).
	Position int `gorm:"not null;index:idx_chat_messages_session_position,priority:2"`

	Citations []ChatCitation `gorm:"foreignKey:ChatMessageId"`
	Comments  []ChatComment  `gorm:"foreignKey:ChatMessageId"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
