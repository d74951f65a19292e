package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeThreadCreated   ChangeKind = "thread_created"
	ChangeThreadUpdated   ChangeKind = "thread_updated"
	ChangeThreadDeleted   ChangeKind = "thread_deleted"
	ChangeMessageAppended ChangeKind = "message_appended"
	ChangeMessagesCleared ChangeKind = "messages_cleared"
)

// Change is one entry of a scope's live feed.
type Change struct {
	Kind     ChangeKind   `json:"kind"`
	ThreadId uuid.UUID    `json:"thread_id"`
	Thread   *ChatThread  `json:"thread,omitempty"`
	Message  *ChatMessage `json:"message,omitempty"`
	At       time.Time    `json:"at"`
}
