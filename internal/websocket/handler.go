package websocket

import (
	"arcane-chat-be/internal/entity"

	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches the connection to the hub and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, scope entity.Scope) {
	client := &Client{Hub: hub, Conn: c, Scope: scope, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
