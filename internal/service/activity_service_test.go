package service

import (
	"context"
	"testing"
	"time"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/pkg/events"
	pktNats "arcane-chat-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubscriber struct {
	subject string
	handler pktNats.EventHandler
}

func (s *stubSubscriber) Subscribe(subject string, durableName string, handler pktNats.EventHandler) error {
	s.subject = subject
	s.handler = handler
	return nil
}

func TestActivityService_CountsEvents(t *testing.T) {
	sub := &stubSubscriber{}
	svc := NewActivityService(sub, logger.NewNopLogger())
	svc.Start()

	require.NotNil(t, sub.handler)
	assert.Equal(t, "events.>", sub.subject)

	for i := 0; i < 2; i++ {
		require.NoError(t, sub.handler(context.Background(), events.New(
			constant.EventThreadCreated,
			map[string]interface{}{"thread_id": "t"},
			time.Now(),
		)))
	}

	require.NoError(t, sub.handler(context.Background(), events.New(constant.EventUserLogin, nil, time.Now())))

	counts := svc.Counts()
	assert.Equal(t, int64(2), counts[constant.EventThreadCreated])
	assert.Equal(t, int64(1), counts[constant.EventUserLogin])
}
