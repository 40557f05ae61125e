package stream

import (
	"context"
	"strings"
	"sync/atomic"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/llm"

	"github.com/google/uuid"
)

// State is the lifecycle position of one stream.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Handle identifies one in-flight generation. It is owned by the
// dispatcher for its lifetime and discarded on completion, error or
// cancellation; it is never persisted.
type Handle struct {
	ChatSessionId uuid.UUID

	// MessageId is the assistant placeholder the stream writes into.
	MessageId uuid.UUID

	cancelled atomic.Bool
	state     atomic.Int32
	ctx       context.Context
	cancel    context.CancelFunc

	// Sequence gating. Only touched by the dispatcher's run goroutine.
	nextSeq int
	pending map[int]llm.Chunk
	content strings.Builder
	markers []string
	docs    []entity.Document
}

func (h *Handle) State() State {
	return State(h.state.Load())
}

func (h *Handle) setState(s State) {
	h.state.Store(int32(s))
}

// Cancelled reports whether cancellation was requested. Checked before
// every chunk application.
func (h *Handle) Cancelled() bool {
	return h.cancelled.Load()
}
