package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatCitation struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatMessageId uuid.UUID `gorm:"type:uuid;not null;index"`
	Label         string    `gorm:"type:varchar(16);not null"`
	DocumentId    string    `gorm:"type:text;not null"`
	Page          *int      `gorm:""`

	// Position preserves citation order within the message.
	Position int `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatCitation) TableName() string {
	return "chat_citations"
}
