package mapper

import (
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Thread Mappers

func (m *ChatMapper) ChatThreadToEntity(t *model.ChatThread) *entity.ChatThread {
	if t == nil {
		return nil
	}
	return &entity.ChatThread{
		Id:           t.Id,
		Owner:        entity.UserScope(t.UserId),
		Name:         t.Name,
		CreatedAt:    t.CreatedAt,
		LastActivity: t.LastActivity,
		AutoRenamed:  t.AutoRenamed,
	}
}

func (m *ChatMapper) ChatThreadToModel(t *entity.ChatThread) *model.ChatThread {
	if t == nil {
		return nil
	}
	return &model.ChatThread{
		Id:           t.Id,
		UserId:       t.Owner.Id,
		Name:         t.Name,
		AutoRenamed:  t.AutoRenamed,
		CreatedAt:    t.CreatedAt,
		LastActivity: t.LastActivity,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:        msg.Id,
		ThreadId:  msg.ThreadId,
		Role:      entity.MessageRole(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:        msg.Id,
		ThreadId:  msg.ThreadId,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(models []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(models))
	for i, msg := range models {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}
