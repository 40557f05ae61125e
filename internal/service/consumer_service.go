package service

import (
	"context"
	"encoding/json"

	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IConsumerService relays internal bus events to the outside world: NATS
// JetStream for external collaborators and the websocket hub for connected
// UIs.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	natsPub   *pktNats.Publisher
	wsHub     *websocket.Hub
	log       logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	natsPub *pktNats.Publisher,
	wsHub *websocket.Hub,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		natsPub:   natsPub,
		wsHub:     wsHub,
		log:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var envelope busEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		cs.log.Warn("Consumer", "Dropping malformed bus event", map[string]interface{}{"error": err.Error()})
		return
	}

	// Fan out to UIs observing the session.
	if cs.wsHub != nil {
		if raw, ok := envelope.Payload["chat_session_id"].(string); ok {
			if sessionId, err := uuid.Parse(raw); err == nil {
				cs.wsHub.NotifySession(sessionId, msg.Payload)
			}
		}
	}

	// Forward to the external event stream.
	if cs.natsPub != nil {
		event := events.BaseEvent{
			Type:       envelope.Type,
			Data:       envelope.Payload,
			OccurredAt: envelope.OccurredAt,
		}
		if err := cs.natsPub.Publish(ctx, event); err != nil {
			cs.log.Warn("Consumer", "Failed to forward event to NATS", map[string]interface{}{
				"type":  envelope.Type,
				"error": err.Error(),
			})
		}
	}
}
