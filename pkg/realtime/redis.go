package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBroker relays events between instances over Redis Pub/Sub.
type RedisBroker struct {
	client *redis.Client
	prefix string
}

// NewRedisBroker connects to url and verifies the connection.
func NewRedisBroker(ctx context.Context, url, prefix string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBrokerFromClient(client, prefix), nil
}

// NewRedisBrokerFromClient wraps an existing client. Close closes it.
func NewRedisBrokerFromClient(client *redis.Client, prefix string) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix}
}

func (b *RedisBroker) channel(topic string) string {
	return b.prefix + topic
}

// Publish 发布事件到 Redis 频道
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(ev.Topic), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Topic, err)
	}
	return nil
}

// Subscribe opens one Pub/Sub connection for topics. It returns once Redis
// has confirmed the subscription, so events published afterwards are seen.
func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = b.channel(topic)
	}

	pubsub := b.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(subCtx, cancel)
	msgs := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		defer sub.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("realtime: dropping malformed event", "channel", msg.Channel, "error", err)
					continue
				}
				if ev.Topic == "" {
					ev.Topic = strings.TrimPrefix(msg.Channel, b.prefix)
				}
				sub.offer(ev)
			}
		}
	}()

	return sub, nil
}

// Close closes the Redis client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
