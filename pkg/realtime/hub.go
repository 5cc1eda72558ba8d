package realtime

import (
	"context"
	"sync"
)

// Hub is an in-process Broker.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

// Publish delivers ev to every subscriber of ev.Topic without blocking.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	for sub := range h.topics[ev.Topic] {
		sub.offer(ev)
	}
	return nil
}

// Subscribe registers for topics. The subscription ends when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(subCtx, cancel)
	for _, topic := range topics {
		set, ok := h.topics[topic]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.topics[topic] = set
		}
		set[sub] = struct{}{}
	}

	go func() {
		<-subCtx.Done()
		h.remove(sub, topics)
	}()
	return sub, nil
}

func (h *Hub) remove(sub *Subscription, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		set := h.topics[topic]
		delete(set, sub)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Subscribers returns the number of subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.topics {
		for sub := range set {
			sub.Close()
		}
	}
	h.topics = make(map[string]map[*Subscription]struct{})
	return nil
}
