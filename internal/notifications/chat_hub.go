package notifications

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"chitchat/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// ChatHub manages WebSocket connections for chat threads. Unlike Hub (which
// is user-centric), ChatHub is room-centric: rooms are keyed by the shared
// friend edge id, and clients join and leave rooms with JSON control frames.
type ChatHub struct {
	mu sync.RWMutex

	// room -> set of clients subscribed to it
	rooms map[string]map[*Client]struct{}

	// client -> set of rooms it joined
	clientRooms map[*Client]map[string]struct{}

	// user email -> set of active clients (multi-device support)
	userConns map[string]map[*Client]struct{}

	metrics *observability.WebSocketRoomMetrics
}

// ChatFrame is the wire format for frames exchanged on the chat socket.
type ChatFrame struct {
	Type    string      `json:"type"` // "join", "leave", "message", "user_status"
	Room    string      `json:"room,omitempty"`
	Email   string      `json:"email,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewChatHub creates a new ChatHub instance
func NewChatHub() *ChatHub {
	return &ChatHub{
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		userConns:   make(map[string]map[*Client]struct{}),
		metrics:     observability.NewWebSocketRoomMetrics(),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// Register registers a user's websocket connection. Returns the Client or an
// error if the per-user connection limit is exceeded.
func (h *ChatHub) Register(userEmail string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userEmail] == nil {
		h.userConns[userEmail] = make(map[*Client]struct{})
	}
	if len(h.userConns[userEmail]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrConnectionLimit
	}

	client := NewClient(h, conn, userEmail)
	h.userConns[userEmail][client] = struct{}{}
	h.clientRooms[client] = make(map[string]struct{})

	online := make([]string, 0, len(h.userConns))
	for email := range h.userConns {
		if email != userEmail {
			online = append(online, email)
		}
	}
	h.mu.Unlock()

	// Send the online snapshot so a fresh client can render presence.
	if len(online) > 0 {
		frame := ChatFrame{Type: "connected_users", Payload: map[string]interface{}{"emails": online}}
		if data, err := json.Marshal(frame); err == nil {
			client.TrySend(data)
		}
	}

	h.broadcastStatus(userEmail, "online")
	return client, nil
}

// UnregisterClient removes a client and cleans up its room subscriptions.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	if rooms, ok := h.clientRooms[client]; ok {
		for room := range rooms {
			h.removeFromRoomLocked(client, room)
		}
		delete(h.clientRooms, client)
	}

	lastConn := false
	if clients, ok := h.userConns[client.UserEmail]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userConns, client.UserEmail)
			lastConn = true
		}
	}
	h.mu.Unlock()

	if lastConn {
		h.broadcastStatus(client.UserEmail, "offline")
	}
}

// JoinRoom subscribes the client to a room.
func (h *ChatHub) JoinRoom(client *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	if _, already := h.rooms[room][client]; already {
		return
	}
	h.rooms[room][client] = struct{}{}
	if h.clientRooms[client] == nil {
		h.clientRooms[client] = make(map[string]struct{})
	}
	h.clientRooms[client][room] = struct{}{}
	h.metrics.IncrementRoom(room)
}

// LeaveRoom unsubscribes the client from a room.
func (h *ChatHub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rooms, ok := h.clientRooms[client]; ok {
		if _, joined := rooms[room]; joined {
			delete(rooms, room)
			h.removeFromRoomLocked(client, room)
		}
	}
}

func (h *ChatHub) removeFromRoomLocked(client *Client, room string) {
	if clients, ok := h.rooms[room]; ok {
		if _, member := clients[client]; member {
			delete(clients, client)
			h.metrics.DecrementRoom(room)
		}
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastRoom sends a message to every client subscribed to the room.
func (h *ChatHub) BroadcastRoom(room, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.rooms[room] {
		c.TrySend(data)
	}
	h.metrics.RecordMessage(room, "chat")
}

// RoomCount returns the number of clients subscribed to a room.
func (h *ChatHub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// HandleFrame processes one incoming control frame from a client.
func (h *ChatHub) HandleFrame(client *Client, raw []byte) {
	var frame ChatFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("ChatHub: bad frame from %s: %v", client.UserEmail, err)
		return
	}
	switch frame.Type {
	case "join":
		h.JoinRoom(client, frame.Room)
	case "leave":
		h.LeaveRoom(client, frame.Room)
	default:
		observability.RecordWebSocketEvent("unknown_frame")
	}
}

// StartWiring connects the Notifier's room channels to this hub so chat
// fan-out works across instances.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartRoomSubscriber(ctx, func(channel, payload string) {
		room, ok := strings.CutPrefix(channel, "chat:room:")
		if !ok || room == "" {
			log.Printf("invalid chat channel: %s", channel)
			return
		}
		h.BroadcastRoom(room, payload)
	})
}

func (h *ChatHub) broadcastStatus(userEmail, status string) {
	frame := ChatFrame{Type: "user_status", Email: userEmail, Payload: map[string]string{"status": status}}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for email, clients := range h.userConns {
		if email == userEmail {
			continue
		}
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// Shutdown gracefully closes all websocket connections
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userEmail, clients := range h.userConns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for user %s: %v", userEmail, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close chat websocket for user %s: %v", userEmail, err)
			}
		}
	}

	h.rooms = make(map[string]map[*Client]struct{})
	h.clientRooms = make(map[*Client]map[string]struct{})
	h.userConns = make(map[string]map[*Client]struct{})
	return nil
}
