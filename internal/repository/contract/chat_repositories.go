package contract

import (
	"context"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
}

type ChatMessageRepository interface {
	// Create inserts the message at the given position inside its session.
	Create(ctx context.Context, message *entity.ChatMessage, position int) error

	// Save updates the mutable columns of an existing message row: content,
	// finalized flag, reaction counters and markers.
	Save(ctx context.Context, message *entity.ChatMessage) error

	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SessionStats aggregates message count and latest message time per
	// session in one query.
	SessionStats(ctx context.Context) (map[uuid.UUID]SessionMessageStats, error)
}

// SessionMessageStats is the per-session aggregate used by session
// listings.
type SessionMessageStats struct {
	Count         int
	LastMessageAt *time.Time
}

type ChatCitationRepository interface {
	// ReplaceForMessage swaps the full citation set of a message.
	ReplaceForMessage(ctx context.Context, messageId uuid.UUID, citations []entity.Citation) error
}

type ChatCommentRepository interface {
	Create(ctx context.Context, messageId uuid.UUID, comment *entity.Comment) error
}
