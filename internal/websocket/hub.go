package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "chat_feed_events"

// PresenceListener hears when a scope gains its first local connection and
// when it loses its last one.
type PresenceListener interface {
	ScopeOnline(scope entity.Scope)
	ScopeOffline(scope entity.Scope)
}

type envelope struct {
	Type string        `json:"type"`
	Data entity.Change `json:"data"`
}

type clusterMessage struct {
	Instance string          `json:"instance"`
	Target   string          `json:"target"`
	Message  json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: scope key -> clients (multi-tab, multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out
	rdb      *redis.Client
	instance string

	listener PresenceListener

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

// SetListener must be called before Run.
func (h *Hub) SetListener(l PresenceListener) {
	h.listener = l
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			key := client.Scope.Key()
			h.mu.Lock()
			first := len(h.clients[key]) == 0
			h.clients[key] = append(h.clients[key], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"scope": key})
			if first && h.listener != nil {
				h.listener.ScopeOnline(client.Scope)
			}

		case client := <-h.unregister:
			key := client.Scope.Key()
			last := false
			h.mu.Lock()
			if clients, ok := h.clients[key]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[key] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[key]) == 0 {
					delete(h.clients, key)
					last = true
				}
			}
			h.mu.Unlock()
			if last {
				h.logger.Info("Hub", "Scope has no more clients", map[string]interface{}{"scope": key})
				if h.listener != nil {
					h.listener.ScopeOffline(client.Scope)
				}
			}
		}
	}
}

func (h *Hub) encode(change entity.Change) ([]byte, bool) {
	data, err := json.Marshal(envelope{Type: "change", Data: change})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode change", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	return data, true
}

// Send delivers a change to the connections of scope held by this instance.
func (h *Hub) Send(scope entity.Scope, change entity.Change) {
	if data, ok := h.encode(change); ok {
		h.deliver(scope.Key(), data)
	}
}

// Broadcast hands a change to the other instances through redis. Without a
// redis client it does nothing.
func (h *Hub) Broadcast(scope entity.Scope, change entity.Change) {
	if h.rdb == nil {
		return
	}
	data, ok := h.encode(change)
	if !ok {
		return
	}

	payload, _ := json.Marshal(clusterMessage{
		Instance: h.instance,
		Target:   scope.Key(),
		Message:  data,
	})
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
	}
}

// ConnectedScopes reports how many scopes hold at least one local connection.
func (h *Hub) ConnectedScopes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(key string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[key] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"scope": key})
		}
	}
}

// subscribeToRedis relays changes published by other instances. Every
// instance listens on one channel and keeps only targets it holds locally.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Instance == h.instance {
			continue
		}
		h.deliver(payload.Target, payload.Message)
	}
}
