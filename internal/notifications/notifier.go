// Package notifications delivers marketplace events to users over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"petbuddies/internal/middleware"
	"petbuddies/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix  = "notifications:user:"
	userChannelPattern = userChannelPrefix + "*"
)

// Event types sent to users.
const (
	EventApplicationReceived  = "application_received"
	EventApplicationCancelled = "application_cancelled"
	EventApplicationAccepted  = "application_accepted"
	EventApplicationDeclined  = "application_declined"
	EventPostClosed           = "post_closed"
	EventUserRated            = "user_rated"
)

// Event is the envelope every realtime message uses.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier publishes events into per-user Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel name.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// EncodeEvent renders the wire form of an event.
func EncodeEvent(eventType string, payload any) (string, error) {
	raw, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return string(raw), nil
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishEvent encodes and publishes an event, counting the outcome.
func (n *Notifier) PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error {
	message, err := EncodeEvent(eventType, payload)
	if err != nil {
		observability.NotificationsPublished.WithLabelValues(eventType, "error").Inc()
		return err
	}
	if err := n.PublishUser(ctx, userID, message); err != nil {
		observability.NotificationsPublished.WithLabelValues(eventType, "error").Inc()
		return err
	}
	observability.NotificationsPublished.WithLabelValues(eventType, "ok").Inc()
	return nil
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage
// for each incoming message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
