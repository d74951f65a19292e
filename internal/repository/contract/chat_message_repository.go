package contract

import (
	"context"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
}
