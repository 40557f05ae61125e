package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs upgrades the connection and registers it as an observer of the
// chat session named in the route params.
func ServeWs(hub *Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		sessionID, err := uuid.Parse(conn.Params("chatSessionId"))
		if err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid chat session id"))
			conn.Close()
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			Send:      make(chan []byte, 256),
			SessionID: sessionID,
		}
		hub.register <- client

		go client.writePump()
		client.readPump()
	}
}
