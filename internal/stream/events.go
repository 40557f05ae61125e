package stream

import (
	"context"
	"errors"

	"ai-docchat-be/internal/entity"
)

// ErrStreamClosed is returned by Recv once the event channel is drained.
var ErrStreamClosed = errors.New("stream closed")

type EventType string

const (
	EventChunk EventType = "chunk"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is one delivery on the subscriber channel. The channel carries
// chunk events in sequence order and is closed after the terminal done or
// error event. A cancelled stream closes the channel with no terminal
// event.
type Event struct {
	Type    EventType
	Delta   string              // chunk
	Message *entity.ChatMessage // done: the finalized message
	Err     error               // error
}

// Subscription is the caller's read side of one stream. Exactly one
// subscriber consumes it.
type Subscription struct {
	handle *Handle
	events chan Event
}

// Events exposes the raw event channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Recv blocks for the next event. The caller controls the maximum wait via
// ctx, typically context.WithTimeout for an idle timeout.
func (s *Subscription) Recv(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, ErrStreamClosed
		}
		return ev, nil
	}
}

// Handle returns the stream's handle for inspection (session and
// placeholder message ids).
func (s *Subscription) Handle() *Handle {
	return s.handle
}
