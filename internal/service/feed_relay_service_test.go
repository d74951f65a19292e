package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/memory"
	"arcane-chat-be/pkg/feed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSender struct {
	mu      sync.Mutex
	changes []entity.Change
}

func (s *collectingSender) Send(scope entity.Scope, change entity.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, change)
}

func (s *collectingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

func TestFeedRelay_ForwardsWhileOnline(t *testing.T) {
	broker := feed.NewInMemoryBroker()
	defer broker.Close()
	guests := memory.NewGuestStore(time.Hour, broker)
	sender := &collectingSender{}

	relay := NewFeedRelay(context.Background(), map[entity.ScopeKind]contract.ConversationStore{
		entity.ScopeGuest: guests,
	}, sender, logger.NewNopLogger())

	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	relay.ScopeOnline(scope)
	relay.ScopeOnline(scope)
	assert.Equal(t, 1, relay.Active())

	require.NoError(t, guests.CreateThread(ctx, scope, entity.NewChatThread(scope, time.Now())))
	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 10*time.Millisecond)

	relay.ScopeOffline(scope)
	assert.Equal(t, 0, relay.Active())

	require.NoError(t, guests.CreateThread(ctx, scope, entity.NewChatThread(scope, time.Now())))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sender.count())

	relay.ScopeOnline(entity.UserScope(uuid.New()))
	assert.Equal(t, 0, relay.Active(), "no store serves users here")
}
