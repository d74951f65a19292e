// Package registry manages the ordered set of conversation threads of a scope.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/contract"

	"github.com/google/uuid"
)

var ErrEmptyName = errors.New("thread name must not be empty")

type Registry struct {
	store contract.ConversationStore
	now   func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func New(store contract.ConversationStore, opts ...Option) *Registry {
	r := &Registry{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Now() time.Time {
	return r.now()
}

// Create adds a thread named "New Chat" whose timestamps are both now.
func (r *Registry) Create(ctx context.Context, scope entity.Scope) (*entity.ChatThread, error) {
	thread := entity.NewChatThread(scope, r.now())
	if err := r.store.CreateThread(ctx, scope, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// List returns the scope's threads, most recently active first.
func (r *Registry) List(ctx context.Context, scope entity.Scope) ([]*entity.ChatThread, error) {
	threads, err := r.store.ListThreads(ctx, scope)
	if err != nil {
		return nil, err
	}
	SortThreads(threads)
	return threads, nil
}

func (r *Registry) Get(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.ChatThread, error) {
	return r.store.GetThread(ctx, scope, id)
}

// Rename applies a user-chosen name. Activity time and the auto-rename flag
// are left as they are.
func (r *Registry) Rename(ctx context.Context, scope entity.Scope, id uuid.UUID, name string) (*entity.ChatThread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	thread, err := r.store.GetThread(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	thread.Name = name
	if err := r.store.UpdateThread(ctx, scope, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// AutoRename applies a generated name and marks the thread so it is never
// auto-renamed again. Activity time is not touched.
func (r *Registry) AutoRename(ctx context.Context, scope entity.Scope, id uuid.UUID, name string) (*entity.ChatThread, error) {
	thread, err := r.store.GetThread(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	thread.Name = name
	thread.AutoRenamed = true
	if err := r.store.UpdateThread(ctx, scope, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// Delete removes the thread and its messages.
func (r *Registry) Delete(ctx context.Context, scope entity.Scope, id uuid.UUID) error {
	return r.store.DeleteThread(ctx, scope, id)
}

// Touch marks the thread as active now.
func (r *Registry) Touch(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.ChatThread, error) {
	thread, err := r.store.GetThread(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	thread.LastActivity = r.now()
	if err := r.store.UpdateThread(ctx, scope, thread); err != nil {
		return nil, err
	}
	return thread, nil
}
