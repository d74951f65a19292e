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

const natsModule = "NATS"

// Publisher writes domain events to the chat event stream.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

// NewPublisher connects and makes sure the event stream exists.
func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url, "arcane-chat-publisher")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// One activity consumer reads the whole stream, so work-queue retention
	// drops events once they are acked.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		log.Warn(natsModule, "Failed to ensure event stream", map[string]interface{}{
			"stream": StreamName,
			"error":  err.Error(),
		})
	}

	return &Publisher{nc: nc, js: js, log: log}, nil
}

// Message builds the NATS message for event: the payload as JSON body, the
// type and time of occurrence as headers.
func Message(event events.Event) (*nats.Msg, error) {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := nats.NewMsg(Subject(event.EventType()))
	msg.Data = data
	msg.Header.Set(HeaderEventType, event.EventType())
	msg.Header.Set(HeaderOccurredAt, event.Timestamp().UTC().Format(time.RFC3339Nano))
	return msg, nil
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}

	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
