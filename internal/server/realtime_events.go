package server

import (
	"context"
	"log/slog"

	"petbuddies/internal/featureflags"
	"petbuddies/internal/middleware"
	"petbuddies/internal/notifications"
)

// publishUserEvent delivers a realtime event to userID. With Redis the event
// goes through pub/sub so every instance can deliver it; without Redis it is
// broadcast to this instance's hub directly. Failures never fail the request.
func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload any) {
	if userID == 0 || !s.featureFlags.Enabled(featureflags.RealtimeNotifications, userID) {
		return
	}

	if s.redis != nil {
		if err := s.notifier.PublishEvent(ctx, userID, eventType, payload); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish event",
				slog.String("event", eventType),
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	message, err := notifications.EncodeEvent(eventType, payload)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to encode event",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	s.hub.Broadcast(userID, message)
}

// postEvent is the payload of application and post events.
type postEvent struct {
	PostID uint `json:"post_id"`
	UserID uint `json:"user_id,omitempty"`
}

// ratingEvent is the payload of EventUserRated.
type ratingEvent struct {
	PostID     uint `json:"post_id"`
	AuthorID   uint `json:"author_id"`
	StarNumber int  `json:"star_number"`
}
