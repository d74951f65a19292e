package implementation

import (
	"context"
	"errors"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/mapper"
	"arcane-chat-be/internal/model"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatThreadRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatThreadRepository(db *gorm.DB) contract.ChatThreadRepository {
	return &ChatThreadRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatThreadRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatThreadRepositoryImpl) Create(ctx context.Context, thread *entity.ChatThread) error {
	m := r.mapper.ChatThreadToModel(thread)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*thread = *r.mapper.ChatThreadToEntity(m)
	return nil
}

func (r *ChatThreadRepositoryImpl) Update(ctx context.Context, thread *entity.ChatThread) error {
	m := r.mapper.ChatThreadToModel(thread)
	// Select("*") so a false AutoRenamed is still written.
	res := r.db.WithContext(ctx).Model(m).Select("*").Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contract.ErrThreadNotFound
	}
	return nil
}

func (r *ChatThreadRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ChatThread{}, id).Error
}

func (r *ChatThreadRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatThread, error) {
	var m model.ChatThread
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatThreadToEntity(&m), nil
}

func (r *ChatThreadRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatThread, error) {
	var models []*model.ChatThread
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatThread, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatThreadToEntity(m)
	}
	return entities, nil
}
