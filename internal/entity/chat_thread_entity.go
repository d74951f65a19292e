package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultThreadName = "New Chat"

type ChatThread struct {
	Id           uuid.UUID
	Owner        Scope
	Name         string
	CreatedAt    time.Time
	LastActivity time.Time
	AutoRenamed  bool
}

// NewChatThread builds a thread with the default name and both timestamps set to now.
func NewChatThread(owner Scope, now time.Time) *ChatThread {
	return &ChatThread{
		Id:           uuid.New(),
		Owner:        owner,
		Name:         DefaultThreadName,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// SortTime is the instant a thread is ordered by; threads that never saw
// activity fall back to their creation time.
func (t *ChatThread) SortTime() time.Time {
	if t.LastActivity.IsZero() {
		return t.CreatedAt
	}
	return t.LastActivity
}

func (t *ChatThread) Clone() *ChatThread {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
