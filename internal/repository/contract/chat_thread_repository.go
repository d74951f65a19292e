package contract

import (
	"context"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatThreadRepository interface {
	Create(ctx context.Context, thread *entity.ChatThread) error
	Update(ctx context.Context, thread *entity.ChatThread) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatThread, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatThread, error)
}
