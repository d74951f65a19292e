package memory

import (
	"context"
	"testing"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/pkg/feed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuestStore(t *testing.T) *GuestStore {
	broker := feed.NewInMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	return NewGuestStore(time.Hour, broker)
}

func TestGuestStore_ListOrdersByActivity(t *testing.T) {
	store := newTestGuestStore(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	older := entity.NewChatThread(scope, base)
	newer := entity.NewChatThread(scope, base.Add(time.Minute))
	require.NoError(t, store.CreateThread(ctx, scope, older))
	require.NoError(t, store.CreateThread(ctx, scope, newer))

	threads, err := store.ListThreads(ctx, scope)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, newer.Id, threads[0].Id)

	older.LastActivity = base.Add(time.Hour)
	require.NoError(t, store.UpdateThread(ctx, scope, older))

	threads, err = store.ListThreads(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, older.Id, threads[0].Id)
}

func TestGuestStore_ScopesAreIsolated(t *testing.T) {
	store := newTestGuestStore(t)
	ctx := context.Background()
	alice := entity.GuestScope(uuid.New())
	bob := entity.GuestScope(uuid.New())

	thread := entity.NewChatThread(alice, time.Now())
	require.NoError(t, store.CreateThread(ctx, alice, thread))

	_, err := store.GetThread(ctx, bob, thread.Id)
	assert.ErrorIs(t, err, contract.ErrThreadNotFound)

	threads, err := store.ListThreads(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, threads)

	err = store.DeleteThread(ctx, bob, thread.Id)
	assert.ErrorIs(t, err, contract.ErrThreadNotFound)
}

func TestGuestStore_RejectsUserScope(t *testing.T) {
	store := newTestGuestStore(t)
	scope := entity.UserScope(uuid.New())

	err := store.CreateThread(context.Background(), scope, entity.NewChatThread(scope, time.Now()))
	assert.ErrorIs(t, err, contract.ErrUnsupportedScope)
}

func TestGuestStore_DeleteCascadesMessages(t *testing.T) {
	store := newTestGuestStore(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	thread := entity.NewChatThread(scope, time.Now())
	require.NoError(t, store.CreateThread(ctx, scope, thread))
	require.NoError(t, store.AppendMessage(ctx, scope, entity.NewChatMessage(thread.Id, entity.MessageRoleUser, "hi", time.Now())))

	require.NoError(t, store.DeleteThread(ctx, scope, thread.Id))

	_, err := store.ListMessages(ctx, scope, thread.Id)
	assert.ErrorIs(t, err, contract.ErrThreadNotFound)
}

func TestGuestStore_ClearKeepsThread(t *testing.T) {
	store := newTestGuestStore(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	thread := entity.NewChatThread(scope, time.Now())
	require.NoError(t, store.CreateThread(ctx, scope, thread))
	require.NoError(t, store.AppendMessage(ctx, scope, entity.NewChatMessage(thread.Id, entity.MessageRoleUser, "one", time.Now())))
	require.NoError(t, store.AppendMessage(ctx, scope, entity.NewChatMessage(thread.Id, entity.MessageRoleAssistant, "two", time.Now())))

	messages, err := store.ListMessages(ctx, scope, thread.Id)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Content)

	require.NoError(t, store.ClearMessages(ctx, scope, thread.Id))

	messages, err = store.ListMessages(ctx, scope, thread.Id)
	require.NoError(t, err)
	assert.Empty(t, messages)

	_, err = store.GetThread(ctx, scope, thread.Id)
	assert.NoError(t, err)
}

func TestGuestStore_ForgetDropsEverything(t *testing.T) {
	store := newTestGuestStore(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	require.NoError(t, store.CreateThread(ctx, scope, entity.NewChatThread(scope, time.Now())))
	store.Forget(scope)

	threads, err := store.ListThreads(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestGuestStore_SubscribeSeesAppends(t *testing.T) {
	store := newTestGuestStore(t)
	scope := entity.GuestScope(uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := store.Subscribe(ctx, scope)
	require.NoError(t, err)

	thread := entity.NewChatThread(scope, time.Now())
	require.NoError(t, store.CreateThread(ctx, scope, thread))

	select {
	case change := <-changes:
		assert.Equal(t, entity.ChangeThreadCreated, change.Kind)
		assert.Equal(t, thread.Id, change.ThreadId)
	case <-time.After(time.Second):
		t.Fatal("no change received")
	}
}
