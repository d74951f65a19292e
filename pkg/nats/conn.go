package nats

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream holding domain events.
	StreamName = "CHAT_EVENTS"
	// SubjectPrefix starts every domain event subject.
	SubjectPrefix = "events."

	HeaderEventType  = "Chat-Event-Type"
	HeaderOccurredAt = "Chat-Occurred-At"
)

// Subject is the subject an event of eventType is published under.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// TypeFromSubject recovers the event type from a subject.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}

func connect(url, name string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}
