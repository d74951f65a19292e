package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/model"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/docstore"
	"arcane-chat-be/internal/repository/unitofwork"
	"arcane-chat-be/pkg/database"
	"arcane-chat-be/pkg/feed"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.Open(dsn, database.Options{Verbose: true})
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, gormDB.AutoMigrate(&model.ChatThread{}, &model.ChatMessage{}))
	return gormDB
}

func TestDocumentStore_RoundTrip(t *testing.T) {
	gormDB := openDB(t)
	ctx := context.Background()

	broker := feed.NewInMemoryBroker()
	defer broker.Close()

	store := docstore.NewDocumentStore(unitofwork.NewRepositoryFactory(gormDB), broker)
	owner := entity.UserScope(uuid.New())
	stranger := entity.UserScope(uuid.New())

	changes, err := store.Subscribe(ctx, owner)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	older := entity.NewChatThread(owner, now.Add(-time.Minute))
	newer := entity.NewChatThread(owner, now)
	require.NoError(t, store.CreateThread(ctx, owner, older))
	require.NoError(t, store.CreateThread(ctx, owner, newer))

	t.Cleanup(func() {
		_ = store.DeleteThread(context.Background(), owner, older.Id)
		_ = store.DeleteThread(context.Background(), owner, newer.Id)
	})

	select {
	case change := <-changes:
		assert.Equal(t, entity.ChangeThreadCreated, change.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}

	t.Run("List is most recent first", func(t *testing.T) {
		threads, err := store.ListThreads(ctx, owner)
		require.NoError(t, err)
		require.Len(t, threads, 2)
		assert.Equal(t, newer.Id, threads[0].Id)
		assert.Equal(t, older.Id, threads[1].Id)
	})

	t.Run("Other owners cannot see the thread", func(t *testing.T) {
		_, err := store.GetThread(ctx, stranger, older.Id)
		assert.ErrorIs(t, err, contract.ErrThreadNotFound)

		threads, err := store.ListThreads(ctx, stranger)
		require.NoError(t, err)
		assert.Empty(t, threads)
	})

	t.Run("Messages keep append order", func(t *testing.T) {
		first := entity.NewChatMessage(older.Id, entity.MessageRoleUser, "first", now)
		second := entity.NewChatMessage(older.Id, entity.MessageRoleAssistant, "second", now.Add(time.Millisecond))
		require.NoError(t, store.AppendMessage(ctx, owner, first))
		require.NoError(t, store.AppendMessage(ctx, owner, second))

		messages, err := store.ListMessages(ctx, owner, older.Id)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "first", messages[0].Content)
		assert.Equal(t, "second", messages[1].Content)
	})

	t.Run("Delete cascades to messages", func(t *testing.T) {
		require.NoError(t, store.DeleteThread(ctx, owner, older.Id))

		_, err := store.GetThread(ctx, owner, older.Id)
		assert.ErrorIs(t, err, contract.ErrThreadNotFound)

		var count int64
		require.NoError(t, gormDB.Model(&model.ChatMessage{}).Where("thread_id = ?", older.Id).Count(&count).Error)
		assert.Zero(t, count)
	})
}
