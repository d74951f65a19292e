package docstore

import (
	"context"
	"fmt"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/specification"
	"arcane-chat-be/internal/repository/unitofwork"
	"arcane-chat-be/pkg/feed"

	"github.com/google/uuid"
)

// DocumentStore is the durable conversation store for signed-in users. Rows
// are scoped by owner id and every write is echoed to the scope's live feed.
type DocumentStore struct {
	uowFactory unitofwork.RepositoryFactory
	broker     *feed.Broker
}

var _ contract.ConversationStore = (*DocumentStore)(nil)

func NewDocumentStore(uowFactory unitofwork.RepositoryFactory, broker *feed.Broker) *DocumentStore {
	return &DocumentStore{uowFactory: uowFactory, broker: broker}
}

func (s *DocumentStore) checkScope(scope entity.Scope) error {
	if scope.Kind != entity.ScopeUser || scope.Id == uuid.Nil {
		return contract.ErrUnsupportedScope
	}
	return nil
}

func (s *DocumentStore) CreateThread(ctx context.Context, scope entity.Scope, thread *entity.ChatThread) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}
	thread.Owner = scope

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatThreadRepository().Create(ctx, thread); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	s.publish(scope, entity.Change{Kind: entity.ChangeThreadCreated, ThreadId: thread.Id, Thread: thread.Clone()})
	return nil
}

func (s *DocumentStore) GetThread(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.ChatThread, error) {
	if err := s.checkScope(scope); err != nil {
		return nil, contract.ErrThreadNotFound
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return s.findOwned(ctx, uow, scope, id)
}

func (s *DocumentStore) ListThreads(ctx context.Context, scope entity.Scope) ([]*entity.ChatThread, error) {
	if err := s.checkScope(scope); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	threads, err := uow.ChatThreadRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: scope.Id},
		specification.ThreadDisplayOrder{},
	)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

func (s *DocumentStore) UpdateThread(ctx context.Context, scope entity.Scope, thread *entity.ChatThread) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, scope, thread.Id); err != nil {
		return err
	}
	thread.Owner = scope
	if err := uow.ChatThreadRepository().Update(ctx, thread); err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	s.publish(scope, entity.Change{Kind: entity.ChangeThreadUpdated, ThreadId: thread.Id, Thread: thread.Clone()})
	return nil
}

func (s *DocumentStore) DeleteThread(ctx context.Context, scope entity.Scope, id uuid.UUID) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, scope, id); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByThreadId(ctx, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := uow.ChatThreadRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.publish(scope, entity.Change{Kind: entity.ChangeThreadDeleted, ThreadId: id})
	return nil
}

func (s *DocumentStore) AppendMessage(ctx context.Context, scope entity.Scope, message *entity.ChatMessage) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, scope, message.ThreadId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().Create(ctx, message); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	msg := *message
	s.publish(scope, entity.Change{Kind: entity.ChangeMessageAppended, ThreadId: message.ThreadId, Message: &msg})
	return nil
}

func (s *DocumentStore) ListMessages(ctx context.Context, scope entity.Scope, threadId uuid.UUID) ([]*entity.ChatMessage, error) {
	if err := s.checkScope(scope); err != nil {
		return nil, err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, scope, threadId); err != nil {
		return nil, err
	}
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: threadId},
		specification.MessageTimeline{},
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *DocumentStore) ClearMessages(ctx context.Context, scope entity.Scope, threadId uuid.UUID) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, scope, threadId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByThreadId(ctx, threadId); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	s.publish(scope, entity.Change{Kind: entity.ChangeMessagesCleared, ThreadId: threadId})
	return nil
}

func (s *DocumentStore) Subscribe(ctx context.Context, scope entity.Scope) (<-chan entity.Change, error) {
	if err := s.checkScope(scope); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(ctx, scope)
}

func (s *DocumentStore) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, scope entity.Scope, id uuid.UUID) (*entity.ChatThread, error) {
	thread, err := uow.ChatThreadRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: scope.Id},
	)
	if err != nil {
		return nil, fmt.Errorf("find thread: %w", err)
	}
	if thread == nil {
		return nil, contract.ErrThreadNotFound
	}
	return thread, nil
}

// publish is best effort; the write it reports has already been committed.
func (s *DocumentStore) publish(scope entity.Scope, change entity.Change) {
	if s.broker == nil {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}
	_ = s.broker.Publish(scope, change)
}
