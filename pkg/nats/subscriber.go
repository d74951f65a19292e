package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one decoded event. A returned error redelivers it.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber runs durable consumers on the chat event stream.
type Subscriber struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url, "arcane-chat-subscriber")
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, log: log}, nil
}

// Decode rebuilds an event from a stream message. Headers win; a message
// without them falls back to the subject and the time of receipt.
func Decode(subject string, header nats.Header, data []byte) (events.BaseEvent, error) {
	var payload map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return events.BaseEvent{}, fmt.Errorf("decode event payload: %w", err)
		}
	}

	eventType := header.Get(HeaderEventType)
	if eventType == "" {
		eventType = TypeFromSubject(subject)
	}

	occurredAt := time.Now().UTC()
	if raw := header.Get(HeaderOccurredAt); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			occurredAt = t
		}
	}

	return events.BaseEvent{Type: eventType, Data: payload, OccurredAt: occurredAt}, nil
}

// Subscribe attaches handler to a durable consumer filtered on subject.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	_, err = consumer.Consume(func(msg jetstream.Msg) {
		event, err := Decode(msg.Subject(), msg.Headers(), msg.Data())
		if err != nil {
			// Redelivery would fail the same way.
			s.log.Error(natsModule, "Dropping undecodable event", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			s.log.Warn(natsModule, "Handler failed, event will be redelivered", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.log.Info(natsModule, "Consumer started", map[string]interface{}{
		"subject": subject,
		"durable": durableName,
	})
	return nil
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
