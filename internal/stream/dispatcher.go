package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/citation"
	"ai-docchat-be/pkg/events"
	"ai-docchat-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var (
	// ErrInvalidContext means the target session does not exist. Sessions
	// are never manufactured implicitly during a stream start.
	ErrInvalidContext = errors.New("invalid stream context")

	// ErrStreamAlreadyActive means the session already has a live stream.
	// Starts are rejected rather than queued.
	ErrStreamAlreadyActive = errors.New("stream already active for session")

	// ErrGenerationFailed wraps a generation collaborator error. Surfaced
	// as a terminal error event, never retried here.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNoActiveStream is returned by Cancel when the session has no
	// live stream.
	ErrNoActiveStream = errors.New("no active stream for session")
)

// eventBuffer sizes the subscriber channel. Sends block once it fills, so
// chunk ordering is preserved under a slow consumer.
const eventBuffer = 16

// Dispatcher owns one active generation per chat session: it pulls chunks
// from the generation collaborator, applies them to the placeholder message
// in contiguous sequence order and emits them as a cancellable event stream
// to exactly one subscriber.
type Dispatcher struct {
	store    contract.ChatStore
	provider llm.StreamProvider
	resolver *citation.Resolver
	pub      events.Publisher
	log      logger.ILogger

	mu     sync.Mutex
	active map[uuid.UUID]*Handle

	// terminal keeps the final state of recently released handles so a
	// caller can query the outcome of a finished stream.
	terminal *cache.Cache
}

func NewDispatcher(store contract.ChatStore, provider llm.StreamProvider, pub events.Publisher, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		provider: provider,
		resolver: citation.NewResolver(),
		pub:      pub,
		log:      log,
		active:   make(map[uuid.UUID]*Handle),
		terminal: cache.New(1*time.Hour, 10*time.Minute),
	}
}

// Start appends the user message and an empty assistant placeholder, opens
// a generation and returns the subscription immediately. Chunk delivery is
// asynchronous; the caller consumes events until the channel closes.
func (d *Dispatcher) Start(ctx context.Context, chatSessionId uuid.UUID, prompt string, docs []entity.Document) (*Subscription, error) {
	sess, err := d.store.GetSession(ctx, chatSessionId)
	if err != nil {
		if errors.Is(err, contract.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrInvalidContext, chatSessionId)
		}
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		ChatSessionId: chatSessionId,
		ctx:           streamCtx,
		cancel:        cancel,
		pending:       make(map[int]llm.Chunk),
		docs:          docs,
	}

	// Reserve the session before any writes so a concurrent Start loses
	// cleanly.
	d.mu.Lock()
	if _, busy := d.active[chatSessionId]; busy {
		d.mu.Unlock()
		cancel()
		return nil, ErrStreamAlreadyActive
	}
	d.active[chatSessionId] = handle
	d.mu.Unlock()

	release := func() {
		cancel()
		d.mu.Lock()
		delete(d.active, chatSessionId)
		d.mu.Unlock()
	}

	userMsg := &entity.ChatMessage{
		Id:      uuid.New(),
		Role:    constant.ChatMessageRoleUser,
		Content: prompt,
	}
	if _, err := d.store.AppendMessage(ctx, chatSessionId, userMsg); err != nil {
		release()
		return nil, err
	}

	placeholder := &entity.ChatMessage{
		Id:   uuid.New(),
		Role: constant.ChatMessageRoleAssistant,
	}
	if _, err := d.store.AppendMessage(ctx, chatSessionId, placeholder); err != nil {
		release()
		return nil, err
	}
	handle.MessageId = placeholder.Id

	history := buildHistory(sess, prompt)
	chunks, err := d.provider.Stream(streamCtx, history)
	if err != nil {
		// The placeholder already exists; freeze it empty so the history
		// never shows a dangling unfinalized row.
		handle.setState(StateFailed)
		d.freeze(handle)
		d.terminal.Set(chatSessionId.String(), StateFailed, cache.DefaultExpiration)
		release()
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	handle.setState(StateStreaming)
	sub := &Subscription{handle: handle, events: make(chan Event, eventBuffer)}

	go d.run(handle, sub, chunks)

	d.log.Info("Stream", "Stream started", map[string]interface{}{
		"chat_session_id": chatSessionId.String(),
		"message_id":      placeholder.Id.String(),
	})

	return sub, nil
}

// Cancel requests cooperative cancellation of the session's active stream.
// Already-committed partial content is retained, never rolled back.
func (d *Dispatcher) Cancel(chatSessionId uuid.UUID) error {
	d.mu.Lock()
	handle, ok := d.active[chatSessionId]
	d.mu.Unlock()
	if !ok {
		return ErrNoActiveStream
	}
	handle.cancelled.Store(true)
	handle.cancel()
	return nil
}

// Status reports the state of the session's stream: the live handle's
// state, or the terminal state of the most recently finished stream.
func (d *Dispatcher) Status(chatSessionId uuid.UUID) (State, bool) {
	d.mu.Lock()
	handle, ok := d.active[chatSessionId]
	d.mu.Unlock()
	if ok {
		return handle.State(), true
	}
	if s, found := d.terminal.Get(chatSessionId.String()); found {
		return s.(State), true
	}
	return StateIdle, false
}

// run is the single writer for one handle. It applies chunks in contiguous
// sequence order and performs exactly one terminal transition.
func (d *Dispatcher) run(handle *Handle, sub *Subscription, chunks <-chan llm.Chunk) {
	// Release the session before closing the channel: once the subscriber
	// sees the close, the session must already accept a new stream.
	defer func() {
		handle.cancel()
		d.terminal.Set(handle.ChatSessionId.String(), handle.State(), cache.DefaultExpiration)
		d.mu.Lock()
		delete(d.active, handle.ChatSessionId)
		d.mu.Unlock()
		close(sub.events)
	}()

	for {
		select {
		case <-handle.ctx.Done():
			d.finishCancelled(handle)
			return
		case chunk, ok := <-chunks:
			if !ok {
				// Provider went away without a terminal chunk.
				if handle.Cancelled() {
					d.finishCancelled(handle)
				} else {
					d.finishFailed(handle, sub, errors.New("generation ended unexpectedly"))
				}
				return
			}
			if handle.Cancelled() {
				d.finishCancelled(handle)
				return
			}
			switch {
			case chunk.Err != nil:
				d.finishFailed(handle, sub, chunk.Err)
				return
			case chunk.Done:
				d.finalize(handle, sub)
				return
			default:
				if err := d.apply(handle, sub, chunk); err != nil {
					d.finishFailed(handle, sub, err)
					return
				}
			}
		}
	}
}

// apply commits a data chunk if it is the next expected sequence. Stale
// sequences are dropped (idempotent under redelivery); future sequences
// are held back until the gap closes, so the placeholder content is always
// the concatenation of all chunks up to the highest contiguous sequence.
func (d *Dispatcher) apply(handle *Handle, sub *Subscription, chunk llm.Chunk) error {
	if chunk.Seq < handle.nextSeq {
		return nil
	}
	if chunk.Seq > handle.nextSeq {
		handle.pending[chunk.Seq] = chunk
		return nil
	}

	for {
		if handle.Cancelled() {
			return nil
		}
		if err := d.commit(handle, sub, chunk); err != nil {
			return err
		}
		handle.nextSeq++
		next, ok := handle.pending[handle.nextSeq]
		if !ok {
			return nil
		}
		delete(handle.pending, handle.nextSeq)
		chunk = next
	}
}

func (d *Dispatcher) commit(handle *Handle, sub *Subscription, chunk llm.Chunk) error {
	handle.content.WriteString(chunk.Text)
	handle.markers = append(handle.markers, chunk.Markers...)

	_, err := d.store.UpdateMessage(handle.ctx, handle.ChatSessionId, handle.MessageId, func(m *entity.ChatMessage) {
		m.Content += chunk.Text
	})
	if err != nil {
		return err
	}

	select {
	case sub.events <- Event{Type: EventChunk, Delta: chunk.Text}:
	case <-handle.ctx.Done():
	}
	return nil
}

// finalize resolves citations and freezes the placeholder in one atomic
// update, then emits the terminal done event.
func (d *Dispatcher) finalize(handle *Handle, sub *Subscription) {
	handle.setState(StateFinalizing)

	extra := make([]citation.Marker, 0, len(handle.markers))
	for _, raw := range handle.markers {
		extra = append(extra, citation.ParseMarker(raw))
	}

	text := handle.content.String()
	resolved, citations, err := d.resolver.ResolveText(text, extra, handle.docs)
	if err != nil {
		// No document to anchor to: finalize without citations rather
		// than failing the stream.
		if !errors.Is(err, citation.ErrNoDocumentAvailable) {
			d.finishFailed(handle, sub, err)
			return
		}
		resolved, citations = text, nil
		d.log.Warn("Stream", "Finalizing without citations", map[string]interface{}{
			"chat_session_id": handle.ChatSessionId.String(),
			"error":           err.Error(),
		})
	}

	final, err := d.store.UpdateMessage(context.Background(), handle.ChatSessionId, handle.MessageId, func(m *entity.ChatMessage) {
		m.Content = resolved
		m.Citations = citations
		m.Markers = handle.markers
		m.Finalized = true
	})
	if err != nil {
		d.finishFailed(handle, sub, err)
		return
	}

	handle.setState(StateDone)
	select {
	case sub.events <- Event{Type: EventDone, Message: final}:
	case <-handle.ctx.Done():
	}

	if err := d.pub.Publish(context.Background(), events.NewMessageFinalized(handle.ChatSessionId, handle.MessageId, len(citations))); err != nil {
		d.log.Warn("Stream", "Failed to publish finalized event", map[string]interface{}{"error": err.Error()})
	}
}

func (d *Dispatcher) finishCancelled(handle *Handle) {
	handle.setState(StateCancelled)
	d.freeze(handle)
	if err := d.pub.Publish(context.Background(), events.NewStreamCancelled(handle.ChatSessionId, handle.MessageId)); err != nil {
		d.log.Warn("Stream", "Failed to publish cancelled event", map[string]interface{}{"error": err.Error()})
	}
	d.log.Info("Stream", "Stream cancelled", map[string]interface{}{
		"chat_session_id": handle.ChatSessionId.String(),
	})
}

func (d *Dispatcher) finishFailed(handle *Handle, sub *Subscription, cause error) {
	handle.setState(StateFailed)
	d.freeze(handle)

	err := fmt.Errorf("%w: %v", ErrGenerationFailed, cause)
	select {
	case sub.events <- Event{Type: EventError, Err: err}:
	default:
		// Subscriber gone; the terminal state is still queryable.
	}

	if pubErr := d.pub.Publish(context.Background(), events.NewStreamFailed(handle.ChatSessionId, handle.MessageId, cause.Error())); pubErr != nil {
		d.log.Warn("Stream", "Failed to publish failure event", map[string]interface{}{"error": pubErr.Error()})
	}
	d.log.Error("Stream", "Stream failed", map[string]interface{}{
		"chat_session_id": handle.ChatSessionId.String(),
		"error":           cause.Error(),
	})
}

// freeze marks the placeholder finalized with whatever partial content was
// committed. Partial answers are never rolled back.
func (d *Dispatcher) freeze(handle *Handle) {
	_, err := d.store.UpdateMessage(context.Background(), handle.ChatSessionId, handle.MessageId, func(m *entity.ChatMessage) {
		m.Finalized = true
		m.Markers = handle.markers
	})
	if err != nil {
		d.log.Warn("Stream", "Failed to freeze placeholder", map[string]interface{}{"error": err.Error()})
	}
}

func buildHistory(sess *entity.ChatSession, prompt string) []llm.Message {
	history := make([]llm.Message, 0, len(sess.Messages)+1)
	for _, m := range sess.Messages {
		if !m.Finalized && m.Role == constant.ChatMessageRoleAssistant {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: prompt})
	return history
}
