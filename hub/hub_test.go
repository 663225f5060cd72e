package hub

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func Test_Join_Moves_Between_Groups(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)

	h.Join("conn-1", "game-1")
	h.Join("conn-2", "game-1")
	req.Equal(2, h.GroupSize("game-1"))

	// A connection belongs to one group at a time
	h.Join("conn-1", "game-2")
	req.Equal(1, h.GroupSize("game-1"))
	req.Equal(1, h.GroupSize("game-2"))
}

func Test_Leave_Checks_The_Group(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)
	h.Join("conn-1", "game-1")

	// Leaving a group the connection is not in changes nothing
	h.Leave("conn-1", "game-2")
	req.Equal(1, h.GroupSize("game-1"))

	h.Leave("conn-1", "game-1")
	req.Equal(0, h.GroupSize("game-1"))
}

func Test_DropGroup_Forgets_Every_Member(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)
	h.Join("conn-1", "game-1")
	h.Join("conn-2", "game-1")

	h.DropGroup("game-1")

	req.Equal(0, h.GroupSize("game-1"))
	// Former members can join a new game afterwards
	h.Join("conn-1", "game-2")
	req.Equal(1, h.GroupSize("game-2"))
}

// dialTestClient upgrades an inbound connection, registers it under
// connID and returns the client side of the socket.
func dialTestClient(t *testing.T, h *Hub, connID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.Register(connID, conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Registration happens server side after the handshake
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.clients[connID]
		return ok
	}, time.Second, time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func Test_Send_Reaches_One_Connection(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)
	conn := dialTestClient(t, h, "conn-1")

	h.Send("conn-1", "round", "sing a song")

	event := readEvent(t, conn)
	req.Equal("round", event.Event)
	req.Equal("sing a song", event.Data)
}

func Test_Broadcast_Reaches_The_Whole_Group(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)
	conn1 := dialTestClient(t, h, "conn-1")
	conn2 := dialTestClient(t, h, "conn-2")
	outsider := dialTestClient(t, h, "conn-3")
	h.Join("conn-1", "game-1")
	h.Join("conn-2", "game-1")

	h.Broadcast("game-1", "state", "round_initialized")
	h.Send("conn-3", "ping", nil)

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		event := readEvent(t, conn)
		req.Equal("state", event.Event)
	}
	// The outsider only ever sees its own event
	event := readEvent(t, outsider)
	req.Equal("ping", event.Event)
}

func Test_Send_To_Unknown_Connection_Is_Noop(t *testing.T) {
	h := New(slog.Default(), 8)
	h.Send("ghost", "round", "data")
}

// A broadcast snapshots its targets before enqueueing, so a connection
// can unregister in between. The late enqueue must be dropped, not panic.
func Test_Enqueue_After_Unregister_Is_Dropped(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)
	dialTestClient(t, h, "conn-1")
	h.Join("conn-1", "game-1")

	h.mu.RLock()
	c := h.clients["conn-1"]
	h.mu.RUnlock()
	req.NotNil(c)

	h.Unregister("conn-1")
	h.enqueue(c, Event{Event: "state", Data: "round_initialized"})
}

func Test_Concurrent_Broadcast_And_Unregister(t *testing.T) {
	h := New(slog.Default(), 8)
	for i := 0; i < 20; i++ {
		connID := "conn-" + string(rune('a'+i))
		dialTestClient(t, h, connID)
		h.Join(connID, "game-1")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Broadcast("game-1", "state", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			h.Unregister("conn-" + string(rune('a'+i)))
		}
	}()
	wg.Wait()
}

func Test_Unregister_Closes_The_Pump(t *testing.T) {
	req := require.New(t)
	h := New(slog.Default(), 8)
	conn := dialTestClient(t, h, "conn-1")
	h.Join("conn-1", "game-1")

	h.Unregister("conn-1")

	req.Equal(0, h.GroupSize("game-1"))
	// The server side closes the socket once the pump drains
	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	var event Event
	err := conn.ReadJSON(&event)
	req.Error(err)
}
