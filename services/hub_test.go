package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func dialTestHub(t *testing.T, hub *Hub, roomCode string, userID uint, username string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.RegisterClient(conn, roomCode, userID, username)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubBroadcastOrder(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialTestHub(t, hub, "ROOM01", 1, "alice")

	// The handshake ack always comes first; reading it also guarantees
	// registration finished before we publish.
	msg := readMessage(t, conn)
	assert.Equal(t, EventConnectionEstablished, msg.Type)

	hub.Publish("ROOM01",
		Message{Type: EventRoundStarted, Payload: map[string]any{"number": 1}},
		Message{Type: EventPlayerAnswered, Payload: map[string]any{"username": "alice"}},
	)

	// Per-subscriber delivery preserves publish order.
	assert.Equal(t, EventRoundStarted, readMessage(t, conn).Type)
	assert.Equal(t, EventPlayerAnswered, readMessage(t, conn).Type)
}

func TestHubRoomScoping(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialTestHub(t, hub, "ROOM01", 1, "alice")
	readMessage(t, conn) // connection_established

	// A broadcast to another room must not reach this subscriber.
	hub.Publish("OTHER1", Message{Type: EventGameStarted})
	hub.Publish("ROOM01", Message{Type: EventRoundStarted})

	assert.Equal(t, EventRoundStarted, readMessage(t, conn).Type)
}

func TestHubPingPong(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialTestHub(t, hub, "ROOM01", 1, "alice")
	readMessage(t, conn) // connection_established

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestHubSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialTestHub(t, hub, "ROOM01", 42, "alice")
	readMessage(t, conn) // connection_established

	assert.Equal(t, []uint{42}, hub.Subscribers("ROOM01"))
	assert.Empty(t, hub.Subscribers("OTHER1"))
}

// registerStalledClient attaches a subscriber whose write pump never
// runs, so nothing ever drains its send buffer. The read pump is left to
// the caller.
func registerStalledClient(t *testing.T, hub *Hub, roomCode string, userID uint, buffer int) *Client {
	t.Helper()

	serverConn := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn <- conn
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	dialed, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { dialed.Close() })

	client := &Client{
		hub:      hub,
		id:       uuid.NewString(),
		socket:   <-serverConn,
		send:     make(chan []byte, buffer),
		roomCode: roomCode,
		userID:   userID,
		username: "stalled",
	}
	hub.register <- client
	require.Eventually(t, func() bool {
		return len(hub.Subscribers(roomCode)) > 0
	}, 2*time.Second, 10*time.Millisecond)
	return client
}

func TestHubDropKeepsEnqueueSafe(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := registerStalledClient(t, hub, "ROOM01", 1, 1)

	// Two messages against a 1-slot buffer guarantee the drop branch.
	hub.Publish("ROOM01",
		Message{Type: EventRoundStarted},
		Message{Type: EventPlayerAnswered},
	)
	assert.Empty(t, hub.Subscribers("ROOM01"))

	// The read pump is still live at this point and may answer a ping;
	// its enqueue must hit an open channel, not a closed one.
	assert.NotPanics(t, func() {
		client.enqueue(Message{Type: "pong"})
	})

	hub.unregister <- client
}

func TestHubDropFiresDisconnect(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t, classicRequest())
	_, err := env.svc.JoinRoom(room.Code, 2, "bob")
	require.NoError(t, err)

	hub := NewHub()
	hub.SetConnectionHandler(env.svc)
	go hub.Run()

	// The handshake ack and the connect broadcast fill the 2-slot
	// buffer; the next publish overflows it and drops the subscriber.
	// The read pump must still unregister the client so the seat is
	// marked disconnected.
	client := registerStalledClient(t, hub, room.Code, 2, 2)
	go client.readPump()

	hub.Publish(room.Code, Message{Type: EventRoundStarted})

	require.Eventually(t, func() bool {
		bob, err := env.st.PlayerByRoomUser(room.ID, 2)
		return err == nil && !bob.Connected
	}, 5*time.Second, 20*time.Millisecond)
}

type recordingHandler struct {
	connects    chan uint
	disconnects chan uint
}

func (h *recordingHandler) HandleConnect(roomCode string, userID uint) []Message {
	h.connects <- userID
	return []Message{{Type: EventPlayerJoined, Payload: map[string]any{"user_id": userID}}}
}

func (h *recordingHandler) HandleDisconnect(roomCode string, userID uint) []Message {
	h.disconnects <- userID
	return nil
}

func TestHubConnectionHandler(t *testing.T) {
	hub := NewHub()
	handler := &recordingHandler{
		connects:    make(chan uint, 1),
		disconnects: make(chan uint, 1),
	}
	hub.SetConnectionHandler(handler)
	go hub.Run()

	conn := dialTestHub(t, hub, "ROOM01", 7, "alice")
	readMessage(t, conn) // connection_established

	select {
	case userID := <-handler.connects:
		assert.Equal(t, uint(7), userID)
	case <-time.After(5 * time.Second):
		t.Fatal("connect handler never fired")
	}

	// The handler's messages are broadcast back to the room.
	assert.Equal(t, EventPlayerJoined, readMessage(t, conn).Type)

	conn.Close()
	select {
	case userID := <-handler.disconnects:
		assert.Equal(t, uint(7), userID)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect handler never fired")
	}
}
