package entity

import (
	"arcane-chat-be/pkg/conversation/banner"

	"github.com/google/uuid"
)

// Session is transient per-client state. It is never written to the
// document store.
type Session struct {
	Key            string
	Identity       Identity
	ActiveThreadId *uuid.UUID
	Loading        bool
	SidebarOpen    bool
	DarkMode       bool
	Banner         *banner.Banner
}

func NewSession(key string, identity Identity, b *banner.Banner) *Session {
	if b == nil {
		b = banner.New()
	}
	return &Session{
		Key:         key,
		Identity:    identity,
		SidebarOpen: true,
		Banner:      b,
	}
}

func (s *Session) IsActive(threadId uuid.UUID) bool {
	return s.ActiveThreadId != nil && *s.ActiveThreadId == threadId
}

func (s *Session) SetActive(threadId uuid.UUID) {
	id := threadId
	s.ActiveThreadId = &id
}

func (s *Session) ClearActive() {
	s.ActiveThreadId = nil
}
