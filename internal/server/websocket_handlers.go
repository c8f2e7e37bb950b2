package server

import (
	"log/slog"

	"petbuddies/internal/middleware"
	"petbuddies/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// connectedEvent is the first message a new websocket client receives.
const connectedEvent = "connected"

// WebsocketUpgrade rejects plain HTTP requests to the websocket endpoint.
func (s *Server) WebsocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebsocketHandler handles GET /api/ws. The connection is receive-only: the
// server pushes notification events and ignores anything the client sends.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		if hello, err := notifications.EncodeEvent(connectedEvent, fiber.Map{"user_id": uid}); err == nil {
			client.TrySend([]byte(hello))
		}

		go client.WritePump()
		client.ReadPump()
	})
}
