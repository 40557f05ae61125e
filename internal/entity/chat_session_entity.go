package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time

	// Messages are ordered by insertion, which is conversation order.
	Messages []*ChatMessage
}

// ChatSessionSummary is the listing projection of a session.
type ChatSessionSummary struct {
	Id            uuid.UUID
	Title         string
	MessageCount  int
	LastMessageAt *time.Time
	CreatedAt     time.Time
}
