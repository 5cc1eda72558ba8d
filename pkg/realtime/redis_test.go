package realtime

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires Redis running on localhost:6379
const testRedisAddr = "localhost:6379"

func setupRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	broker := NewRedisBrokerFromClient(client, "test:"+t.Name()+":")
	t.Cleanup(func() { _ = broker.Close() })
	return broker
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	broker := setupRedisBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, RoomTopic("breakout-xyz"))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, Event{
		Topic:        RoomTopic("breakout-xyz"),
		Kind:         KindUpdated,
		InvitationID: "inv-1",
		Status:       "ongoing",
	}))

	ev := receive(t, sub)
	assert.Equal(t, RoomTopic("breakout-xyz"), ev.Topic)
	assert.Equal(t, "inv-1", ev.InvitationID)
	assert.Equal(t, "ongoing", ev.Status)
}

func TestRedisBrokerIgnoresOtherTopics(t *testing.T) {
	broker := setupRedisBroker(t)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, UserTopic("u1"))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(ctx, Event{Topic: UserTopic("u2"), Kind: KindCreated}))
	assertNoEvent(t, sub)
}
