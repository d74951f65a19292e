package contract

import (
	"context"
	"errors"

	"arcane-chat-be/internal/entity"

	"github.com/google/uuid"
)

var (
	ErrThreadNotFound   = errors.New("thread not found")
	ErrUnsupportedScope = errors.New("store does not serve this scope")
)

// ConversationStore is the document store behind the thread registry and the
// message store. Every call is confined to one scope; a thread owned by
// another scope behaves as if it did not exist.
type ConversationStore interface {
	CreateThread(ctx context.Context, scope entity.Scope, thread *entity.ChatThread) error
	GetThread(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.ChatThread, error)
	ListThreads(ctx context.Context, scope entity.Scope) ([]*entity.ChatThread, error)
	UpdateThread(ctx context.Context, scope entity.Scope, thread *entity.ChatThread) error
	// DeleteThread removes the thread together with all of its messages.
	DeleteThread(ctx context.Context, scope entity.Scope, id uuid.UUID) error

	AppendMessage(ctx context.Context, scope entity.Scope, message *entity.ChatMessage) error
	// ListMessages returns the thread's messages oldest first.
	ListMessages(ctx context.Context, scope entity.Scope, threadId uuid.UUID) ([]*entity.ChatMessage, error)
	ClearMessages(ctx context.Context, scope entity.Scope, threadId uuid.UUID) error

	// Subscribe streams every change made in scope until ctx is done.
	Subscribe(ctx context.Context, scope entity.Scope) (<-chan entity.Change, error)
}
