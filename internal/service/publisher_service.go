package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-docchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// busEnvelope is the wire form of an event on the internal bus.
type busEnvelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// PublisherService puts domain events on the in-process Watermill bus.
// Implements events.Publisher.
type PublisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

var _ events.Publisher = (*PublisherService)(nil)

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) *PublisherService {
	return &PublisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (ps *PublisherService) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(busEnvelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	return ps.pubSub.Publish(ps.topicName, msg)
}
