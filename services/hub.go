package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Broadcast event types, the `type` discriminant of every wire message.
const (
	EventConnectionEstablished = "connection_established"
	EventPlayerJoined          = "player_joined"
	EventPlayerLeft            = "player_leave"
	EventGameStarted           = "game_started"
	EventRoundStarted          = "round_started"
	EventPlayerAnswered        = "player_answered"
	EventRoundEnded            = "round_ended"
	EventNextRound             = "next_round"
	EventGameFinished          = "game_finished"
)

// Message is one broadcast wire message.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Publisher fans out messages to every subscriber of a room topic.
// Publishing is fire-and-forget: it never blocks the caller and never
// fails the operation that produced the events.
type Publisher interface {
	Publish(roomCode string, messages ...Message)
}

// ConnectionHandler reacts to subscriber lifecycle changes. The hub calls
// it when a client attaches to or detaches from a room topic; the
// returned messages are broadcast to that room.
type ConnectionHandler interface {
	HandleConnect(roomCode string, userID uint) []Message
	HandleDisconnect(roomCode string, userID uint) []Message
}

// Hub tracks connected websocket clients and fans out room-scoped
// messages. Each client drains its own buffered send channel, so
// delivery order per subscriber follows publish order; a subscriber that
// stops draining is dropped rather than allowed to block the room.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	handler    ConnectionHandler
}

// Client is one websocket subscriber of a room topic.
type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	roomCode string
	userID   uint
	username string

	// dead marks a subscriber dropped by Publish; guarded by hub.mu.
	// The client stays registered until its read pump unregisters it, so
	// the disconnect handler still fires exactly once.
	dead bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetConnectionHandler wires the presence handler. Set once at startup,
// before Run.
func (h *Hub) SetConnectionHandler(handler ConnectionHandler) {
	h.handler = handler
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("hub: client %s joined room %s (user %d: %s)", client.id, client.roomCode, client.userID, client.username)

			client.enqueue(Message{Type: EventConnectionEstablished, Payload: map[string]any{
				"room_code": client.roomCode,
			}})
			if h.handler != nil {
				h.Publish(client.roomCode, h.handler.HandleConnect(client.roomCode, client.userID)...)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, known := h.clients[client]
			if known {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

			if known {
				log.Printf("hub: client %s left room %s (user %d: %s)", client.id, client.roomCode, client.userID, client.username)
				if h.handler != nil {
					h.Publish(client.roomCode, h.handler.HandleDisconnect(client.roomCode, client.userID)...)
				}
			}
		}
	}
}

// Publish sends messages to every subscriber of the room topic, in
// order. Slow subscribers are disconnected instead of blocking.
func (h *Hub) Publish(roomCode string, messages ...Message) {
	if len(messages) == 0 {
		return
	}

	encoded := make([][]byte, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("hub: marshal %s failed: %v", msg.Type, err)
			continue
		}
		encoded = append(encoded, data)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.roomCode != roomCode || client.dead {
			continue
		}
	deliver:
		for _, data := range encoded {
			select {
			case client.send <- data:
			default:
				// Only Run closes the send channel: closing it here would
				// race the client's read pump, which may still enqueue a
				// pong. Closing the socket makes both pumps exit, and the
				// read pump unregisters the client as usual.
				log.Printf("hub: client %s send buffer full, dropping connection", client.id)
				client.dead = true
				client.socket.Close()
				break deliver
			}
		}
	}
}

// Subscribers returns the user ids currently connected to a room topic.
func (h *Hub) Subscribers(roomCode string) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var userIDs []uint
	for client := range h.clients {
		if client.roomCode == roomCode && !client.dead {
			userIDs = append(userIDs, client.userID)
		}
	}
	return userIDs
}

// RegisterClient attaches a websocket connection to a room topic and
// starts its pumps.
func (h *Hub) RegisterClient(conn *websocket.Conn, roomCode string, userID uint, username string) *Client {
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, 256),
		roomCode: roomCode,
		userID:   userID,
		username: username,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("hub: read error from client %s: %v", c.id, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("hub: bad message from client %s: %v", c.id, err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.enqueue(Message{Type: "pong"})
		default:
			log.Printf("hub: unknown message type %q from client %s", msg.Type, c.id)
		}
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for data := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}
