package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type presence struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (p *presence) ScopeOnline(scope entity.Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, scope.Key())
}

func (p *presence) ScopeOffline(scope entity.Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, scope.Key())
}

func (p *presence) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.online), len(p.offline)
}

func TestHub_DeliversToScopeAndTracksPresence(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	listener := &presence{}
	hub.SetListener(listener)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	scope := entity.GuestScope(uuid.New())
	a := &Client{Hub: hub, Scope: scope, Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, Scope: scope, Send: make(chan []byte, 4)}
	stranger := &Client{Hub: hub, Scope: entity.GuestScope(uuid.New()), Send: make(chan []byte, 4)}
	hub.register <- a
	hub.register <- b
	hub.register <- stranger

	require.Eventually(t, func() bool { return hub.ConnectedScopes() == 2 }, time.Second, 10*time.Millisecond)

	threadId := uuid.New()
	hub.Send(scope, entity.Change{Kind: entity.ChangeThreadCreated, ThreadId: threadId})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			var env envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			assert.Equal(t, "change", env.Type)
			assert.Equal(t, threadId, env.Data.ThreadId)
		case <-time.After(time.Second):
			t.Fatal("client did not receive change")
		}
	}
	assert.Empty(t, stranger.Send)

	// Broadcast only reaches other instances.
	hub.Broadcast(scope, entity.Change{Kind: entity.ChangeThreadDeleted, ThreadId: threadId})
	assert.Empty(t, a.Send)

	hub.unregister <- a
	hub.unregister <- b
	require.Eventually(t, func() bool {
		online, offline := listener.counts()
		return online == 2 && offline == 1
	}, time.Second, 10*time.Millisecond)
}
