package memory

import (
	"context"
	"sync"

	"github.com/nexuswealth/mcu/pkg/ports"
)

// Bus implements ports.EventBus with in-process handlers. Delivery is
// synchronous and in publish order, which keeps per-account outcome
// ordering intact for single-node deployments and tests.
type Bus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[string]map[int]ports.EventHandler
}

// NewBus creates a new in-memory event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[int]ports.EventHandler),
	}
}

// Publish delivers an event to every subscriber of the topic.
// Handler errors are swallowed so one bad subscriber cannot block the
// publisher.
func (b *Bus) Publish(ctx context.Context, topic string, event ports.Event) error {
	b.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(b.subscribers[topic]))
	for _, h := range b.subscribers[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for a topic. The subscription is
// removed when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[int]ports.EventHandler)
	}
	id := b.nextID
	b.nextID++
	b.subscribers[topic][id] = handler
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers[topic], id)
		b.mu.Unlock()
	}()

	return nil
}

// Close drops all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]map[int]ports.EventHandler)
	return nil
}
