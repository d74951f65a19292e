package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

// ChatMessage is immutable once appended to its thread.
type ChatMessage struct {
	Id        uuid.UUID
	ThreadId  uuid.UUID
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}

func NewChatMessage(threadId uuid.UUID, role MessageRole, content string, now time.Time) *ChatMessage {
	return &ChatMessage{
		Id:        uuid.New(),
		ThreadId:  threadId,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}
