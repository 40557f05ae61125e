package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-docchat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisChannel carries session events between instances so a UI connected
// to a different node still sees them.
const redisChannel = "chat_session_events"

// Hub fans chat session events out to connected observers. Clients
// register for one session; a session may have several observers (multiple
// tabs or devices).
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out, optional.
	rdb *redis.Client

	// instanceID tags published wire events so this instance can ignore
	// its own messages when they echo back from Redis.
	instanceID string

	logger logger.ILogger
}

type wireEvent struct {
	InstanceID    string          `json:"instance_id"`
	ChatSessionID string          `json:"chat_session_id"`
	Payload       json.RawMessage `json:"payload"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Observer registered", map[string]interface{}{"chat_session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifySession pushes an event payload to every local observer of the
// session and relays it to other instances over Redis.
func (h *Hub) NotifySession(sessionID uuid.UUID, payload []byte) {
	h.deliverLocal(sessionID, payload)

	if h.rdb != nil {
		wire, _ := json.Marshal(wireEvent{
			InstanceID:    h.instanceID,
			ChatSessionID: sessionID.String(),
			Payload:       payload,
		})
		h.rdb.Publish(context.Background(), redisChannel, wire)
	}
}

// deliverLocal hands the payload to every observer with buffer room. A
// client whose buffer is full is kicked; the unregister path owns the
// single close of its Send channel.
func (h *Hub) deliverLocal(sessionID uuid.UUID, payload []byte) {
	h.mu.RLock()
	clients := h.clients[sessionID]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("Hub", "Observer buffer full, dropping", map[string]interface{}{"chat_session_id": sessionID})
			h.unregister <- client
		}
	}
}

// handleWireEvent delivers one event received from Redis, skipping events
// this instance published itself (its observers already got them locally).
func (h *Hub) handleWireEvent(data []byte) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		h.logger.Warn("Hub", "Malformed redis event", map[string]interface{}{"error": err.Error()})
		return
	}
	if wire.InstanceID == h.instanceID {
		return
	}
	sessionID, err := uuid.Parse(wire.ChatSessionID)
	if err != nil {
		return
	}
	h.deliverLocal(sessionID, wire.Payload)
}

// subscribeToRedis consumes session events published by other instances
// and delivers the ones this instance has observers for.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.handleWireEvent([]byte(msg.Payload))
	}
}
