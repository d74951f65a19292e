package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"arcane-chat-be/internal/entity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const topicPrefix = "feed."

// Broker carries store changes to live subscribers. Each scope has its own
// topic, so a guest subscription can never observe a user's changes.
type Broker struct {
	pubSub *gochannel.GoChannel

	mu        sync.RWMutex
	observers []Observer
}

// Observer sees every change this broker publishes, whatever the scope.
type Observer func(scope entity.Scope, change entity.Change)

func NewBroker(pubSub *gochannel.GoChannel) *Broker {
	return &Broker{pubSub: pubSub}
}

// NewInMemoryBroker builds a broker on a private gochannel pub/sub.
func NewInMemoryBroker() *Broker {
	return NewBroker(gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	))
}

// Observe registers fn for every later Publish. fn runs on the publisher's
// goroutine and must not block.
func (b *Broker) Observe(fn Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

func Topic(scope entity.Scope) string {
	return topicPrefix + scope.Key()
}

func (b *Broker) Publish(scope entity.Scope, change entity.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(Topic(scope), msg); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}

	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()
	for _, fn := range observers {
		fn(scope, change)
	}
	return nil
}

// Subscribe returns changes published for scope after the call. The channel
// is closed once ctx is done.
func (b *Broker) Subscribe(ctx context.Context, scope entity.Scope) (<-chan entity.Change, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic(scope))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Topic(scope), err)
	}

	out := make(chan entity.Change, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var change entity.Change
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Broker) Close() error {
	return b.pubSub.Close()
}
