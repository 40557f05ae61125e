package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_MESSAGE_FINALIZED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher is the outbound side of the event bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BaseEvent is the generic implementation every concrete event uses.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeMessageFinalized = "chat.message.finalized"
	TypeStreamFailed     = "chat.stream.failed"
	TypeStreamCancelled  = "chat.stream.cancelled"
	TypeReactionRecorded = "chat.feedback.reacted"
	TypeCommentAdded     = "chat.feedback.commented"
)

func NewMessageFinalized(sessionId, messageId uuid.UUID, citations int) Event {
	return BaseEvent{
		Type: TypeMessageFinalized,
		Data: map[string]interface{}{
			"chat_session_id": sessionId.String(),
			"message_id":      messageId.String(),
			"citations":       citations,
		},
		OccurredAt: time.Now(),
	}
}

func NewStreamFailed(sessionId, messageId uuid.UUID, reason string) Event {
	return BaseEvent{
		Type: TypeStreamFailed,
		Data: map[string]interface{}{
			"chat_session_id": sessionId.String(),
			"message_id":      messageId.String(),
			"reason":          reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewStreamCancelled(sessionId, messageId uuid.UUID) Event {
	return BaseEvent{
		Type: TypeStreamCancelled,
		Data: map[string]interface{}{
			"chat_session_id": sessionId.String(),
			"message_id":      messageId.String(),
		},
		OccurredAt: time.Now(),
	}
}

func NewReactionRecorded(sessionId, messageId uuid.UUID, direction string, up, down int) Event {
	return BaseEvent{
		Type: TypeReactionRecorded,
		Data: map[string]interface{}{
			"chat_session_id": sessionId.String(),
			"message_id":      messageId.String(),
			"direction":       direction,
			"up":              up,
			"down":            down,
		},
		OccurredAt: time.Now(),
	}
}

func NewCommentAdded(sessionId, messageId, commentId uuid.UUID) Event {
	return BaseEvent{
		Type: TypeCommentAdded,
		Data: map[string]interface{}{
			"chat_session_id": sessionId.String(),
			"message_id":      messageId.String(),
			"comment_id":      commentId.String(),
		},
		OccurredAt: time.Now(),
	}
}

// NopPublisher drops every event. Used when no bus is wired, and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
