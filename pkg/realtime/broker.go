// Package realtime fans out invalidation events to watchers.
//
// Events carry no state a subscriber should trust: on receipt a watcher
// re-reads whatever query it is displaying. Delivery is therefore
// coalescing, and a slow subscriber sees at most one queued event.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"arena-breakout-backend/pkg/config"
)

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("realtime: broker closed")

// Event kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Event signals that the rows behind a topic changed.
type Event struct {
	Topic        string    `json:"topic"`
	Kind         string    `json:"kind"`
	InvitationID string    `json:"invitation_id,omitempty"`
	RoomID       string    `json:"room_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	At           time.Time `json:"at"`
}

// RoomTopic is the topic for everything keyed by a breakout room id.
func RoomTopic(roomID string) string { return "room:" + roomID }

// UserTopic is the topic for invitations a user sent or received.
func UserTopic(userID string) string { return "user:" + userID }

// Broker publishes events and hands out subscriptions.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
	Close() error
}

// Subscription delivers events until Close is called or its context ends.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	done   <-chan struct{}
	once   sync.Once
	cancel func()
}

func newSubscription(ctx context.Context, cancel func()) *Subscription {
	ch := make(chan Event, 1)
	return &Subscription{C: ch, ch: ch, done: ctx.Done(), cancel: cancel}
}

// Done is closed once the subscription stops delivering, whether by Close,
// its context ending, or the broker shutting down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// offer queues ev unless an event is already waiting.
func (s *Subscription) offer(ev Event) {
	select {
	case s.ch <- ev:
	default:
	}
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// NewBroker returns a Redis broker when REDIS_URL is set, else an in-process hub.
func NewBroker(ctx context.Context, cfg *config.Config) (Broker, error) {
	if cfg.RedisURL == "" {
		slog.Info("realtime: using in-process hub")
		return NewHub(), nil
	}
	b, err := NewRedisBroker(ctx, cfg.RedisURL, cfg.RedisChannelPrefix)
	if err != nil {
		return nil, err
	}
	slog.Info("realtime: using redis pub/sub")
	return b, nil
}
