package service

import (
	"context"
	"sync"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/repository/contract"
)

const feedModule = "FEED"

// FeedSender delivers a change to a scope's live connections.
type FeedSender interface {
	Send(scope entity.Scope, change entity.Change)
}

// FeedRelay keeps one store subscription per scope that has live
// connections on this instance and forwards every change to the sender.
type FeedRelay struct {
	stores map[entity.ScopeKind]contract.ConversationStore
	sender FeedSender
	log    logger.ILogger

	mu   sync.Mutex
	subs map[string]context.CancelFunc
	ctx  context.Context
}

func NewFeedRelay(ctx context.Context, stores map[entity.ScopeKind]contract.ConversationStore, sender FeedSender, log logger.ILogger) *FeedRelay {
	return &FeedRelay{
		stores: stores,
		sender: sender,
		log:    log,
		subs:   make(map[string]context.CancelFunc),
		ctx:    ctx,
	}
}

func (r *FeedRelay) ScopeOnline(scope entity.Scope) {
	store, ok := r.stores[scope.Kind]
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[scope.Key()]; exists {
		return
	}

	ctx, cancel := context.WithCancel(r.ctx)
	changes, err := store.Subscribe(ctx, scope)
	if err != nil {
		cancel()
		r.log.Error(feedModule, "Subscribe failed", map[string]interface{}{
			"scope": scope.Key(),
			"error": err.Error(),
		})
		return
	}
	r.subs[scope.Key()] = cancel

	go func() {
		for change := range changes {
			r.sender.Send(scope, change)
		}
	}()
}

func (r *FeedRelay) ScopeOffline(scope entity.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.subs[scope.Key()]; ok {
		cancel()
		delete(r.subs, scope.Key())
	}
}

// Active is the number of scopes currently relayed.
func (r *FeedRelay) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
