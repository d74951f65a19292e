package events

import "time"

// Event is a domain event published on the event bus.
type Event interface {
	// EventType is the upper-case event code, e.g. "THREAD_CREATED".
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// New builds an event that occurred at at.
func New(eventType string, data map[string]interface{}, at time.Time) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: at}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
