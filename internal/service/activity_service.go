package service

import (
	"context"
	"fmt"
	"sync"

	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/pkg/events"
	pktNats "arcane-chat-be/pkg/nats"
)

const activityModule = "ACTIVITY"

// EventSubscriber is satisfied by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

// ActivityService consumes the domain event stream, writes each event to the
// activity log and keeps per-type counters.
type ActivityService struct {
	subscriber EventSubscriber
	logger     logger.ILogger

	mu     sync.RWMutex
	counts map[string]int64
}

func NewActivityService(sub EventSubscriber, log logger.ILogger) *ActivityService {
	return &ActivityService{
		subscriber: sub,
		logger:     log,
		counts:     make(map[string]int64),
	}
}

// Start begins listening to the event bus.
func (s *ActivityService) Start() {
	if s.subscriber == nil {
		return
	}
	err := s.subscriber.Subscribe(pktNats.SubjectPrefix+">", "chat-activity-worker", s.HandleEvent)
	if err != nil {
		s.logger.Error(activityModule, "Failed to start activity subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info(activityModule, "Activity service started, listening to events.>", nil)
}

func (s *ActivityService) HandleEvent(ctx context.Context, event events.Event) error {
	eventType := event.EventType()

	s.mu.Lock()
	s.counts[eventType]++
	s.mu.Unlock()

	s.logger.Info(activityModule, fmt.Sprintf("Event: %s", eventType), event.Payload())
	return nil
}

func (s *ActivityService) Counts() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
