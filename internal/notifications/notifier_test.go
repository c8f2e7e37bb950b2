package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.PublishEvent(context.Background(), 1, EventPostClosed, nil))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishUser(context.Background(), 1, "x"))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}
}

func TestParseUserChannel_Invalid(t *testing.T) {
	t.Parallel()
	for _, ch := range []string{"notifications:user:", "notifications:user:abc", "notifications:user:0", "chat:conv:1"} {
		_, ok := ParseUserChannel(ch)
		assert.False(t, ok, ch)
	}
}

func TestEncodeEvent(t *testing.T) {
	t.Parallel()
	msg, err := EncodeEvent(EventApplicationReceived, map[string]any{"post_id": 3, "user_id": 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"application_received","payload":{"post_id":3,"user_id":4}}`, msg)

	_, err = EncodeEvent(EventUserRated, make(chan int))
	assert.Error(t, err)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	payloads := make(chan string, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == UserChannel(1) {
			atomic.AddInt32(&received, 1)
			payloads <- payload
		}
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "before-cancel"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	select {
	case <-payloads:
	default:
	}

	_ = n.PublishUser(context.Background(), 1, "after-cancel")
	assert.Never(t, func() bool {
		select {
		case payload := <-payloads:
			return payload == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}
