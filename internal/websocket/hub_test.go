package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"ai-docchat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, logger.Nop{})
	go h.Run()
	return h
}

func registerClient(t *testing.T, h *Hub, sessionID uuid.UUID, buffer int) *Client {
	t.Helper()
	client := &Client{hub: h, Send: make(chan []byte, buffer), SessionID: sessionID}
	h.register <- client

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients[sessionID]) > 0
	}, time.Second, 5*time.Millisecond)
	return client
}

func TestHubDeliversToObservers(t *testing.T) {
	h := newTestHub(t)
	sessionID := uuid.New()
	client := registerClient(t, h, sessionID, 4)

	h.NotifySession(sessionID, []byte(`{"type":"chat.message.finalized"}`))

	select {
	case payload := <-client.Send:
		assert.JSONEq(t, `{"type":"chat.message.finalized"}`, string(payload))
	case <-time.After(time.Second):
		t.Fatal("observer never received the event")
	}
}

func TestHubKicksSlowObserverWithoutPanic(t *testing.T) {
	h := newTestHub(t)
	sessionID := uuid.New()
	client := registerClient(t, h, sessionID, 1)

	// Fill the observer's buffer so the next delivery cannot land.
	client.Send <- []byte("backlog")

	h.NotifySession(sessionID, []byte("dropped"))

	// The slow observer is unregistered and its channel closed exactly once.
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients[sessionID]) == 0
	}, time.Second, 5*time.Millisecond)

	<-client.Send // drain the backlog entry
	select {
	case _, open := <-client.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was never closed")
	}

	// A healthy observer of the same session keeps working.
	healthy := registerClient(t, h, sessionID, 4)
	h.NotifySession(sessionID, []byte("after"))
	select {
	case payload := <-healthy.Send:
		assert.Equal(t, "after", string(payload))
	case <-time.After(time.Second):
		t.Fatal("healthy observer never received the event")
	}
}

func TestHubIgnoresItsOwnRedisEcho(t *testing.T) {
	h := newTestHub(t)
	sessionID := uuid.New()
	client := registerClient(t, h, sessionID, 4)

	own, err := json.Marshal(wireEvent{
		InstanceID:    h.instanceID,
		ChatSessionID: sessionID.String(),
		Payload:       []byte(`"echo"`),
	})
	require.NoError(t, err)
	h.handleWireEvent(own)

	select {
	case payload := <-client.Send:
		t.Fatalf("self-published event was delivered twice: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}

	foreign, err := json.Marshal(wireEvent{
		InstanceID:    uuid.NewString(),
		ChatSessionID: sessionID.String(),
		Payload:       []byte(`"remote"`),
	})
	require.NoError(t, err)
	h.handleWireEvent(foreign)

	select {
	case payload := <-client.Send:
		assert.Equal(t, `"remote"`, string(payload))
	case <-time.After(time.Second):
		t.Fatal("remote event never delivered")
	}
}
