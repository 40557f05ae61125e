package entity

import (
	"time"

	"github.com/google/uuid"
)

// Comment is an append-only feedback note on a message. Never edited or
// removed once written.
type Comment struct {
	Id        uuid.UUID `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
