package registry_test

import (
	"context"
	"testing"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/memory"
	"arcane-chat-be/pkg/conversation/registry"
	"arcane-chat-be/pkg/feed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newRegistry(t *testing.T) (*registry.Registry, *stepClock) {
	broker := feed.NewInMemoryBroker()
	t.Cleanup(func() { broker.Close() })

	clock := &stepClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewGuestStore(time.Hour, broker)
	return registry.New(store, registry.WithClock(clock.Now)), clock
}

func TestRegistry_CreateDefaults(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	seen := map[uuid.UUID]bool{}
	for i := 0; i < 20; i++ {
		thread, err := reg.Create(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, "New Chat", thread.Name)
		assert.False(t, thread.AutoRenamed)
		assert.Equal(t, thread.CreatedAt, thread.LastActivity)
		assert.False(t, seen[thread.Id], "duplicate id %s", thread.Id)
		seen[thread.Id] = true
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	first, err := reg.Create(ctx, scope)
	require.NoError(t, err)
	second, err := reg.Create(ctx, scope)
	require.NoError(t, err)
	third, err := reg.Create(ctx, scope)
	require.NoError(t, err)

	threads, err := reg.List(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{third.Id, second.Id, first.Id}, ids(threads))

	_, err = reg.Touch(ctx, scope, first.Id)
	require.NoError(t, err)

	threads, err = reg.List(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.Id, third.Id, second.Id}, ids(threads))
}

func TestSortThreads_TiesUseCreationTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	older := &entity.ChatThread{Id: uuid.New(), CreatedAt: at, LastActivity: at.Add(time.Hour)}
	newer := &entity.ChatThread{Id: uuid.New(), CreatedAt: at.Add(time.Minute), LastActivity: at.Add(time.Hour)}

	threads := []*entity.ChatThread{older, newer}
	registry.SortThreads(threads)

	assert.Equal(t, newer.Id, threads[0].Id)
}

func TestRegistry_RenameKeepsActivityAndFlag(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	thread, err := reg.Create(ctx, scope)
	require.NoError(t, err)

	_, err = reg.Rename(ctx, scope, thread.Id, "   ")
	assert.ErrorIs(t, err, registry.ErrEmptyName)

	renamed, err := reg.Rename(ctx, scope, thread.Id, "  Travel plans ")
	require.NoError(t, err)
	assert.Equal(t, "Travel plans", renamed.Name)
	assert.Equal(t, thread.LastActivity, renamed.LastActivity)
	assert.False(t, renamed.AutoRenamed)
}

func TestRegistry_AutoRenameSetsFlagOnly(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	thread, err := reg.Create(ctx, scope)
	require.NoError(t, err)

	renamed, err := reg.AutoRename(ctx, scope, thread.Id, "Go generics")
	require.NoError(t, err)
	assert.Equal(t, "Go generics", renamed.Name)
	assert.True(t, renamed.AutoRenamed)
	assert.Equal(t, thread.LastActivity, renamed.LastActivity)
}

func TestRegistry_DeleteAndGetMissing(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	scope := entity.GuestScope(uuid.New())

	thread, err := reg.Create(ctx, scope)
	require.NoError(t, err)
	require.NoError(t, reg.Delete(ctx, scope, thread.Id))

	_, err = reg.Get(ctx, scope, thread.Id)
	assert.ErrorIs(t, err, contract.ErrThreadNotFound)

	_, err = reg.Touch(ctx, scope, thread.Id)
	assert.ErrorIs(t, err, contract.ErrThreadNotFound)
}

func ids(threads []*entity.ChatThread) []uuid.UUID {
	out := make([]uuid.UUID, len(threads))
	for i, t := range threads {
		out[i] = t.Id
	}
	return out
}
