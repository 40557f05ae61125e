package nats

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subscriber attaches a durable JetStream consumer to the chat event
// stream. Handlers receive the raw event payload; offset tracking lives
// server side so restarts resume where they left off.
type Subscriber struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	sub *nats.Subscription
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := nats.Connect(url, nats.Name("ai-docchat-consumer"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe registers handler for every chat event under a durable
// consumer named durable. Messages are acked only after the handler
// returns nil.
func (s *Subscriber) Subscribe(durable string, handler func(subject string, data []byte) error) error {
	sub, err := s.js.Subscribe(subjectPattern, func(msg *nats.Msg) {
		if err := handler(msg.Subject, msg.Data); err != nil {
			msg.Nak()
			return
		}
		msg.Ack()
	}, nats.Durable(durable), nats.ManualAck(), nats.BindStream(streamName))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subjectPattern, err)
	}

	s.sub = sub
	return nil
}

func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
