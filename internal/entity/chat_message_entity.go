package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Content       string

	// Finalized is set once the owning stream terminates. Content is frozen
	// from that point on; only feedback fields may still change.
	Finalized bool

	Citations []Citation
	Reactions Reactions
	Comments  []Comment

	// Markers holds the raw citation markers collected while streaming,
	// kept for resolution provenance.
	Markers []string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Reactions is a pair of monotonically non-decreasing counters.
type Reactions struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Clone returns a deep copy so callers can hand out message snapshots
// without exposing store-owned slices.
func (m *ChatMessage) Clone() *ChatMessage {
	if m == nil {
		return nil
	}
	c := *m
	if m.Citations != nil {
		c.Citations = make([]Citation, len(m.Citations))
		copy(c.Citations, m.Citations)
	}
	if m.Comments != nil {
		c.Comments = make([]Comment, len(m.Comments))
		copy(c.Comments, m.Comments)
	}
	if m.Markers != nil {
		c.Markers = make([]string, len(m.Markers))
		copy(c.Markers, m.Markers)
	}
	if m.UpdatedAt != nil {
		t := *m.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}
