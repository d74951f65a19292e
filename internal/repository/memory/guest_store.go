package memory

import (
	"context"
	"sync"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/pkg/conversation/registry"
	"arcane-chat-be/pkg/feed"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type guestBook struct {
	mu       sync.Mutex
	threads  map[uuid.UUID]*entity.ChatThread
	messages map[uuid.UUID][]*entity.ChatMessage
}

func newGuestBook() *guestBook {
	return &guestBook{
		threads:  make(map[uuid.UUID]*entity.ChatThread),
		messages: make(map[uuid.UUID][]*entity.ChatMessage),
	}
}

// GuestStore keeps anonymous conversations in memory only. A guest's book is
// dropped after it has been idle for the configured TTL.
type GuestStore struct {
	cache  *cache.Cache
	mu     sync.Mutex
	broker *feed.Broker
}

var _ contract.ConversationStore = (*GuestStore)(nil)

func NewGuestStore(idleTTL time.Duration, broker *feed.Broker) *GuestStore {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &GuestStore{
		cache:  cache.New(idleTTL, 10*time.Minute),
		broker: broker,
	}
}

func (s *GuestStore) book(scope entity.Scope, create bool) (*guestBook, error) {
	if scope.Kind != entity.ScopeGuest || scope.Id == uuid.Nil {
		return nil, contract.ErrUnsupportedScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.Key()
	if x, found := s.cache.Get(key); found {
		b := x.(*guestBook)
		s.cache.Set(key, b, cache.DefaultExpiration)
		return b, nil
	}
	if !create {
		return nil, nil
	}
	b := newGuestBook()
	s.cache.Set(key, b, cache.DefaultExpiration)
	return b, nil
}

// Forget drops everything stored for scope.
func (s *GuestStore) Forget(scope entity.Scope) {
	s.cache.Delete(scope.Key())
}

func (s *GuestStore) CreateThread(ctx context.Context, scope entity.Scope, thread *entity.ChatThread) error {
	b, err := s.book(scope, true)
	if err != nil {
		return err
	}
	thread.Owner = scope

	b.mu.Lock()
	b.threads[thread.Id] = thread.Clone()
	b.messages[thread.Id] = nil
	b.mu.Unlock()

	s.publish(scope, entity.Change{Kind: entity.ChangeThreadCreated, ThreadId: thread.Id, Thread: thread.Clone()})
	return nil
}

func (s *GuestStore) GetThread(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.ChatThread, error) {
	b, err := s.book(scope, false)
	if err != nil || b == nil {
		return nil, contract.ErrThreadNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.threads[id]
	if !ok {
		return nil, contract.ErrThreadNotFound
	}
	return t.Clone(), nil
}

func (s *GuestStore) ListThreads(ctx context.Context, scope entity.Scope) ([]*entity.ChatThread, error) {
	b, err := s.book(scope, false)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []*entity.ChatThread{}, nil
	}

	b.mu.Lock()
	threads := make([]*entity.ChatThread, 0, len(b.threads))
	for _, t := range b.threads {
		threads = append(threads, t.Clone())
	}
	b.mu.Unlock()

	registry.SortThreads(threads)
	return threads, nil
}

func (s *GuestStore) UpdateThread(ctx context.Context, scope entity.Scope, thread *entity.ChatThread) error {
	b, err := s.book(scope, false)
	if err != nil {
		return err
	}
	if b == nil {
		return contract.ErrThreadNotFound
	}

	b.mu.Lock()
	if _, ok := b.threads[thread.Id]; !ok {
		b.mu.Unlock()
		return contract.ErrThreadNotFound
	}
	thread.Owner = scope
	b.threads[thread.Id] = thread.Clone()
	b.mu.Unlock()

	s.publish(scope, entity.Change{Kind: entity.ChangeThreadUpdated, ThreadId: thread.Id, Thread: thread.Clone()})
	return nil
}

func (s *GuestStore) DeleteThread(ctx context.Context, scope entity.Scope, id uuid.UUID) error {
	b, err := s.book(scope, false)
	if err != nil {
		return err
	}
	if b == nil {
		return contract.ErrThreadNotFound
	}

	b.mu.Lock()
	if _, ok := b.threads[id]; !ok {
		b.mu.Unlock()
		return contract.ErrThreadNotFound
	}
	delete(b.threads, id)
	delete(b.messages, id)
	b.mu.Unlock()

	s.publish(scope, entity.Change{Kind: entity.ChangeThreadDeleted, ThreadId: id})
	return nil
}

func (s *GuestStore) AppendMessage(ctx context.Context, scope entity.Scope, message *entity.ChatMessage) error {
	b, err := s.book(scope, false)
	if err != nil {
		return err
	}
	if b == nil {
		return contract.ErrThreadNotFound
	}

	b.mu.Lock()
	if _, ok := b.threads[message.ThreadId]; !ok {
		b.mu.Unlock()
		return contract.ErrThreadNotFound
	}
	msg := *message
	b.messages[message.ThreadId] = append(b.messages[message.ThreadId], &msg)
	b.mu.Unlock()

	published := msg
	s.publish(scope, entity.Change{Kind: entity.ChangeMessageAppended, ThreadId: message.ThreadId, Message: &published})
	return nil
}

func (s *GuestStore) ListMessages(ctx context.Context, scope entity.Scope, threadId uuid.UUID) ([]*entity.ChatMessage, error) {
	b, err := s.book(scope, false)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, contract.ErrThreadNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.threads[threadId]; !ok {
		return nil, contract.ErrThreadNotFound
	}
	stored := b.messages[threadId]
	messages := make([]*entity.ChatMessage, len(stored))
	for i, m := range stored {
		c := *m
		messages[i] = &c
	}
	return messages, nil
}

func (s *GuestStore) ClearMessages(ctx context.Context, scope entity.Scope, threadId uuid.UUID) error {
	b, err := s.book(scope, false)
	if err != nil {
		return err
	}
	if b == nil {
		return contract.ErrThreadNotFound
	}

	b.mu.Lock()
	if _, ok := b.threads[threadId]; !ok {
		b.mu.Unlock()
		return contract.ErrThreadNotFound
	}
	b.messages[threadId] = nil
	b.mu.Unlock()

	s.publish(scope, entity.Change{Kind: entity.ChangeMessagesCleared, ThreadId: threadId})
	return nil
}

func (s *GuestStore) Subscribe(ctx context.Context, scope entity.Scope) (<-chan entity.Change, error) {
	if scope.Kind != entity.ScopeGuest {
		return nil, contract.ErrUnsupportedScope
	}
	return s.broker.Subscribe(ctx, scope)
}

func (s *GuestStore) publish(scope entity.Scope, change entity.Change) {
	if s.broker == nil {
		return
	}
	change.At = time.Now()
	_ = s.broker.Publish(scope, change)
}
