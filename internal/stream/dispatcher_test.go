package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/pkg/events"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/llm/scripted"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, provider *scripted.Provider) (*Dispatcher, *memory.ChatStore, uuid.UUID) {
	t.Helper()
	store := memory.NewChatStore()
	sess, err := store.CreateSession(context.Background(), "test session")
	require.NoError(t, err)

	d := NewDispatcher(store, provider, events.NopPublisher{}, logger.Nop{})
	return d, store, sess.Id
}

// drain consumes the subscription until the channel closes and returns the
// events seen, failing the test if nothing terminates in time.
func drain(t *testing.T, sub *Subscription) []Event {
	t.Helper()
	var seen []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return seen
			}
			seen = append(seen, ev)
		case <-timeout:
			t.Fatal("stream did not terminate")
		}
	}
}

func TestStreamConcatenatesInOrder(t *testing.T) {
	provider := scripted.New("Hello", ", ", "world", "!")
	d, store, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "greet me", nil)
	require.NoError(t, err)

	seen := drain(t, sub)
	require.NotEmpty(t, seen)

	last := seen[len(seen)-1]
	require.Equal(t, EventDone, last.Type)
	assert.Equal(t, "Hello, world!", last.Message.Content)
	assert.True(t, last.Message.Finalized)

	var deltas string
	for _, ev := range seen[:len(seen)-1] {
		require.Equal(t, EventChunk, ev.Type)
		deltas += ev.Delta
	}
	assert.Equal(t, "Hello, world!", deltas)

	// Store holds user message and finalized assistant message.
	sess, err := store.GetSession(context.Background(), sessId)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, sess.Messages[0].Role)
	assert.Equal(t, "greet me", sess.Messages[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "Hello, world!", sess.Messages[1].Content)
}

func TestStreamPermutedDeliveryStillOrdered(t *testing.T) {
	provider := scripted.New("A", "B", "C", "D")
	provider.Delivery = []int{2, 0, 3, 1}
	d, store, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "permute", nil)
	require.NoError(t, err)

	seen := drain(t, sub)
	last := seen[len(seen)-1]
	require.Equal(t, EventDone, last.Type)
	assert.Equal(t, "ABCD", last.Message.Content)

	sess, err := store.GetSession(context.Background(), sessId)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", sess.Messages[1].Content)
}

func TestStreamDuplicateDeliveryIsIdempotent(t *testing.T) {
	provider := scripted.New("A", "B", "C")
	provider.Delivery = []int{0, 0, 1, 1, 0, 2, 2}
	d, _, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "dup", nil)
	require.NoError(t, err)

	seen := drain(t, sub)
	last := seen[len(seen)-1]
	require.Equal(t, EventDone, last.Type)
	assert.Equal(t, "ABC", last.Message.Content)
}

func TestStreamFailureEmitsErrorAndKeepsPartial(t *testing.T) {
	provider := scripted.New("keep", " this", " lost")
	provider.FailAfter = 2
	d, store, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "fail", nil)
	require.NoError(t, err)

	seen := drain(t, sub)
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	require.Equal(t, EventError, last.Type)
	assert.ErrorIs(t, last.Err, ErrGenerationFailed)

	// Partial content survives and the placeholder is frozen.
	sess, err := store.GetSession(context.Background(), sessId)
	require.NoError(t, err)
	assert.Equal(t, "keep this", sess.Messages[1].Content)
	assert.True(t, sess.Messages[1].Finalized)

	state, ok := d.Status(sessId)
	require.True(t, ok)
	assert.Equal(t, StateFailed, state)
}

func TestCancelStopsStream(t *testing.T) {
	provider := scripted.New("a", "b", "c", "d", "e", "f", "g", "h")
	provider.Interval = 20 * time.Millisecond
	d, store, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "cancel me", nil)
	require.NoError(t, err)

	// Let a few chunks land first.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, d.Cancel(sessId))

	drain(t, sub)

	state, ok := d.Status(sessId)
	require.True(t, ok)
	assert.Equal(t, StateCancelled, state)

	// Whatever was committed before cancellation is retained and frozen.
	sess, err := store.GetSession(context.Background(), sessId)
	require.NoError(t, err)
	assert.True(t, sess.Messages[1].Finalized)
	assert.Equal(t, "abcdefgh"[:len(sess.Messages[1].Content)], sess.Messages[1].Content)
}

func TestCancelWithoutActiveStream(t *testing.T) {
	d, _, sessId := newTestDispatcher(t, scripted.New("x"))
	assert.ErrorIs(t, d.Cancel(sessId), ErrNoActiveStream)
}

func TestSecondStartOnSameSessionRejected(t *testing.T) {
	provider := scripted.New("slow", " reply")
	provider.Interval = 50 * time.Millisecond
	d, _, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "first", nil)
	require.NoError(t, err)

	_, err = d.Start(context.Background(), sessId, "second", nil)
	assert.ErrorIs(t, err, ErrStreamAlreadyActive)

	// After the first stream finishes the session accepts a new one.
	drain(t, sub)

	sub2, err := d.Start(context.Background(), sessId, "third", nil)
	require.NoError(t, err)
	drain(t, sub2)
}

func TestStartUnknownSession(t *testing.T) {
	store := memory.NewChatStore()
	d := NewDispatcher(store, scripted.New("x"), events.NopPublisher{}, logger.Nop{})

	_, err := d.Start(context.Background(), uuid.New(), "hello", nil)
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestFinalizeResolvesCitations(t *testing.T) {
	provider := scripted.New("See [cite:d1:3]", " and [cite].")
	d, _, sessId := newTestDispatcher(t, provider)

	docs := []entity.Document{
		{Id: "d1", Name: "report.pdf", Type: "pdf"},
		{Id: "d2", Name: "notes.txt", Type: "txt"},
	}
	sub, err := d.Start(context.Background(), sessId, "cite things", docs)
	require.NoError(t, err)

	seen := drain(t, sub)
	last := seen[len(seen)-1]
	require.Equal(t, EventDone, last.Type)

	assert.Equal(t, "See [1] and [1].", last.Message.Content)
	require.Len(t, last.Message.Citations, 1)
	assert.Equal(t, "d1", last.Message.Citations[0].DocumentId)
	require.NotNil(t, last.Message.Citations[0].Page)
	assert.Equal(t, 3, *last.Message.Citations[0].Page)
}

func TestFinalizeWithoutDocumentsKeepsRawText(t *testing.T) {
	provider := scripted.New("Unanchored [cite:ghost:9] claim.")
	d, _, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "no docs", nil)
	require.NoError(t, err)

	seen := drain(t, sub)
	last := seen[len(seen)-1]
	require.Equal(t, EventDone, last.Type)

	// No document to anchor to: text is kept verbatim, no citations.
	assert.Equal(t, "Unanchored [cite:ghost:9] claim.", last.Message.Content)
	assert.Empty(t, last.Message.Citations)
	assert.True(t, last.Message.Finalized)
}

func TestOutOfBandMarkersResolved(t *testing.T) {
	provider := scripted.New("An answer without inline markers.")
	provider.Markers = map[int][]string{0: {"[cite:d1:5]"}}
	d, _, sessId := newTestDispatcher(t, provider)

	docs := []entity.Document{{Id: "d1", Name: "spec.pdf", Type: "pdf"}}
	sub, err := d.Start(context.Background(), sessId, "band", docs)
	require.NoError(t, err)

	seen := drain(t, sub)
	last := seen[len(seen)-1]
	require.Equal(t, EventDone, last.Type)
	require.Len(t, last.Message.Citations, 1)
	assert.Equal(t, "d1", last.Message.Citations[0].DocumentId)
}

// refusingProvider cannot open a stream at all.
type refusingProvider struct{}

func (refusingProvider) Stream(context.Context, []llm.Message, ...llm.Option) (<-chan llm.Chunk, error) {
	return nil, errors.New("connection refused")
}

func (refusingProvider) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("connection refused")
}

func TestStartFailureFreezesPlaceholder(t *testing.T) {
	store := memory.NewChatStore()
	sess, err := store.CreateSession(context.Background(), "test session")
	require.NoError(t, err)

	d := NewDispatcher(store, refusingProvider{}, events.NopPublisher{}, logger.Nop{})

	_, err = d.Start(context.Background(), sess.Id, "prompt", nil)
	require.ErrorIs(t, err, ErrGenerationFailed)

	// The user message stays, the placeholder is frozen empty instead of
	// lingering as an unfinalized row.
	got, err := store.GetSession(context.Background(), sess.Id)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	placeholder := got.Messages[1]
	assert.Equal(t, constant.ChatMessageRoleAssistant, placeholder.Role)
	assert.Empty(t, placeholder.Content)
	assert.True(t, placeholder.Finalized)

	state, ok := d.Status(sess.Id)
	require.True(t, ok)
	assert.Equal(t, StateFailed, state)

	// The session is released again.
	assert.ErrorIs(t, d.Cancel(sess.Id), ErrNoActiveStream)
}

func TestStatusReportsTerminalState(t *testing.T) {
	provider := scripted.New("quick")
	d, _, sessId := newTestDispatcher(t, provider)

	sub, err := d.Start(context.Background(), sessId, "status", nil)
	require.NoError(t, err)
	drain(t, sub)

	state, ok := d.Status(sessId)
	require.True(t, ok)
	assert.Equal(t, StateDone, state)

	_, ok = d.Status(uuid.New())
	assert.False(t, ok)
}
