package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/internal/ws"
)

// Socket streams realtime events to the caller. Mount it behind
// middleware.RequireWebSocket, which resolves the session.
// GET /ws
func Socket(hub *ws.Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sess, _ := c.Locals(middleware.SessionKey).(*session.Session)
		if !hub.Add(c, sess) {
			return
		}
		defer hub.Remove(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
