package contract

import (
	"context"
	"errors"

	"ai-docchat-be/internal/entity"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrMessageNotFound = errors.New("chat message not found")
)

// ChatStore is the single shared mutable resource of the engine: a durable
// map of chat sessions to their ordered message history.
//
// Concurrency contract: all mutations on one session are linearizable,
// and each mutation is all-or-nothing from any observer's viewpoint.
// Mutations on different sessions must not block each other.
type ChatStore interface {
	// CreateSession allocates a new session with an empty message list.
	CreateSession(ctx context.Context, title string) (*entity.ChatSession, error)

	GetSession(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error)

	// ListSessions returns summaries ordered most-recently-created first,
	// stable by insertion order for equal creation times.
	ListSessions(ctx context.Context) ([]*entity.ChatSessionSummary, error)

	RenameSession(ctx context.Context, id uuid.UUID, title string) error

	// AppendMessage atomically appends to the session's ordered message list.
	AppendMessage(ctx context.Context, chatSessionId uuid.UUID, message *entity.ChatMessage) (*entity.ChatMessage, error)

	// UpdateMessage applies the mutator exactly once under the session's
	// lock and returns a snapshot of the updated message. Used both for
	// placeholder content updates during streaming and for feedback
	// mutations.
	UpdateMessage(ctx context.Context, chatSessionId, messageId uuid.UUID, mutate func(*entity.ChatMessage)) (*entity.ChatMessage, error)
}
