package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/pkg/conversation/banner"
	"arcane-chat-be/pkg/kv"
	"arcane-chat-be/pkg/llm"

	"github.com/google/uuid"
)

const historyModule = "HISTORY"

// IHistoryService is the single-conversation mode: one message list per
// guest, kept in the key-value store under the "chatHistory" name.
type IHistoryService interface {
	Get(ctx context.Context, guestId uuid.UUID) (*dto.HistoryResponse, error)
	Send(ctx context.Context, guestId uuid.UUID, content string) (*dto.SendHistoryResponse, error)
	Clear(ctx context.Context, guestId uuid.UUID) error
}

type historyService struct {
	store    kv.Store
	provider llm.LLMProvider
	ttl      time.Duration
	log      logger.ILogger
	now      func() time.Time

	locks *keyedLock
}

func NewHistoryService(store kv.Store, provider llm.LLMProvider, ttl time.Duration, log logger.ILogger) IHistoryService {
	return &historyService{
		store:    store,
		provider: provider,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		locks:    newKeyedLock(),
	}
}

func historyKey(guestId uuid.UUID) string {
	return fmt.Sprintf("%s:%s", constant.HistoryKey, guestId)
}

func (s *historyService) lock(guestId uuid.UUID) func() {
	return s.locks.Lock(guestId.String())
}

// load reads the stored list. A missing or corrupt record reads as empty.
func (s *historyService) load(ctx context.Context, guestId uuid.UUID) ([]dto.HistoryMessage, error) {
	raw, err := s.store.Get(ctx, historyKey(guestId))
	if errors.Is(err, kv.ErrMiss) {
		return []dto.HistoryMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []dto.HistoryMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		s.log.Warn(historyModule, "Discarding unreadable history", map[string]interface{}{
			"guest_id": guestId,
			"error":    err.Error(),
		})
		return []dto.HistoryMessage{}, nil
	}
	return messages, nil
}

func (s *historyService) save(ctx context.Context, guestId uuid.UUID, messages []dto.HistoryMessage) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, historyKey(guestId), raw, s.ttl)
}

func (s *historyService) Get(ctx context.Context, guestId uuid.UUID) (*dto.HistoryResponse, error) {
	messages, err := s.load(ctx, guestId)
	if err != nil {
		return nil, s.fail("load history", err)
	}
	return &dto.HistoryResponse{Messages: messages}, nil
}

// Send stores the user's message, then asks for a reply over the latest
// messages. On failure the user's message stays in the history.
func (s *historyService) Send(ctx context.Context, guestId uuid.UUID, content string) (*dto.SendHistoryResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.lock(guestId)
	defer unlock()

	messages, err := s.load(ctx, guestId)
	if err != nil {
		return nil, s.fail("load history", err)
	}

	messages = append(messages, dto.HistoryMessage{
		Role:      llm.RoleUser,
		Content:   content,
		CreatedAt: s.now(),
	})
	if err := s.save(ctx, guestId, messages); err != nil {
		return nil, s.fail("save history", err)
	}

	history := make([]llm.Message, len(messages))
	for i, m := range messages {
		history[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	reply, err := s.provider.Chat(ctx, llm.Recent(history, constant.ContextWindow))
	if err != nil {
		return nil, s.fail("completion", err)
	}
	if reply == "" {
		reply = constant.ReplyFallback
	}

	assistant := dto.HistoryMessage{
		Role:      llm.RoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	messages = append(messages, assistant)
	if err := s.save(ctx, guestId, messages); err != nil {
		return nil, s.fail("save history", err)
	}

	return &dto.SendHistoryResponse{Reply: assistant, Messages: messages}, nil
}

func (s *historyService) Clear(ctx context.Context, guestId uuid.UUID) error {
	unlock := s.lock(guestId)
	defer unlock()

	if err := s.store.Delete(ctx, historyKey(guestId)); err != nil {
		return s.fail("clear history", err)
	}
	return nil
}

func (s *historyService) fail(op string, err error) error {
	throttled := llm.IsRateLimited(err)
	message := banner.GenericMessage
	if throttled {
		message = banner.ThrottledMessage
	}
	s.log.Error(historyModule, fmt.Sprintf("%s failed", op), map[string]interface{}{
		"throttled": throttled,
		"error":     err.Error(),
	})
	return &BannerError{Message: message, Throttled: throttled, Err: err}
}
