package server

import (
	"encoding/json"
	"log"

	"chitchat/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles WebSocket connections for user notifications.
// Clients registered here receive their user events plus broadcasts.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		email, _ := conn.Locals("userEmail").(string)
		if email == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(email, conn)
		if err != nil {
			log.Printf("WebSocket: failed to register %s: %v", email, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		observability.RecordWebSocketEvent("notification_connect")

		welcome := map[string]interface{}{
			"type":    "connected",
			"payload": map[string]string{"email": email},
		}
		if welcomeJSON, err := json.Marshal(welcome); err == nil {
			client.TrySend(welcomeJSON)
		}

		go client.WritePump()

		// Read pump runs in the handler goroutine (blocking); it exits when
		// the connection drops and unregisters the client.
		client.ReadPump()
	})
}

// WebSocketChatHandler handles WebSocket connections for real-time chat.
// Incoming frames are join/leave room commands; room messages arrive via
// the HTTP send endpoint and fan out through the ChatHub.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		email, _ := conn.Locals("userEmail").(string)
		if email == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		if s.chatHub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.chatHub.Register(email, conn)
		if err != nil {
			log.Printf("WebSocket Chat: failed to register %s: %v", email, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		observability.RecordWebSocketEvent("chat_connect")

		client.IncomingHandler = s.chatHub.HandleFrame

		go client.WritePump()
		client.ReadPump()
	})
}
