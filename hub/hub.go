// Package hub is the push transport: it groups live websocket
// connections by game key and broadcasts named events to them.
//
// Delivery is best-effort with no guarantees regarding ordering,
// durability, or retries. The hub is not a message broker; a client that
// reconnects starts from the current state, nothing is replayed.
package hub

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"tero-session/errors"
)

// Event is the wire envelope for every outbound notification.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// client's mu guards out against close: enqueue and close both take it,
// so an event can never land on a closed channel even when the
// connection drops between a broadcast's snapshot and its enqueue.
type client struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	out    chan Event
	closed bool
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

// Hub tracks registered connections and their group membership. A
// connection belongs to at most one group (one game) at a time.
type Hub struct {
	mu       sync.RWMutex
	log      *slog.Logger
	clients  map[string]*client
	groups   map[string]map[string]struct{}
	memberOf map[string]string
	buffer   int
}

func New(log *slog.Logger, buffer int) *Hub {
	return &Hub{
		log:      log,
		clients:  make(map[string]*client),
		groups:   make(map[string]map[string]struct{}),
		memberOf: make(map[string]string),
		buffer:   buffer,
	}
}

// Register adds a freshly upgraded connection and starts its write pump.
// All writes to the socket go through the pump so a slow client never
// blocks a broadcast.
func (h *Hub) Register(connID string, conn *websocket.Conn) {
	c := &client{id: connID, conn: conn, out: make(chan Event, h.buffer)}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()

	go c.writePump(h.log)
}

func (c *client) writePump(log *slog.Logger) {
	defer func() {
		_ = c.conn.Close()
	}()
	for event := range c.out {
		if err := c.conn.WriteJSON(event); err != nil {
			log.Debug("Write to connection failed", "connection", c.id, "error", err)
			return
		}
	}
}

// Unregister drops a connection entirely: group membership, client entry
// and the write pump.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.leaveLocked(connID)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// Join binds a connection to a game key's group.
func (h *Hub) Join(connID, gameKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(connID)
	if _, ok := h.groups[gameKey]; !ok {
		h.groups[gameKey] = make(map[string]struct{})
	}
	h.groups[gameKey][connID] = struct{}{}
	h.memberOf[connID] = gameKey
}

// Leave removes a connection from a group without closing it.
func (h *Hub) Leave(connID, gameKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.memberOf[connID] == gameKey {
		h.leaveLocked(connID)
	}
}

func (h *Hub) leaveLocked(connID string) {
	gameKey, ok := h.memberOf[connID]
	if !ok {
		return
	}
	delete(h.memberOf, connID)
	if members, ok := h.groups[gameKey]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, gameKey)
		}
	}
}

// DropGroup forgets a game key's group. The connections stay registered;
// the frontend is expected to disconnect after the close notification.
func (h *Hub) DropGroup(gameKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for connID := range h.groups[gameKey] {
		delete(h.memberOf, connID)
	}
	delete(h.groups, gameKey)
}

// Broadcast sends an event to every connection bound to gameKey.
func (h *Hub) Broadcast(gameKey, event string, data any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.groups[gameKey]))
	for connID := range h.groups[gameKey] {
		if c, ok := h.clients[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c, Event{Event: event, Data: data})
	}
}

// Send delivers an event to a single connection.
func (h *Hub) Send(connID, event string, data any) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.enqueue(c, Event{Event: event, Data: data})
}

// enqueue never blocks: when a client's buffer is full the event is
// dropped, which is the contract of the hub. Events for a connection
// that unregistered after the caller snapshotted it are dropped too.
func (h *Hub) enqueue(c *client, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.out <- event:
	default:
		h.log.Warn("Dropping event for slow connection",
			"connection", c.id, "event", event.Event, "error", errors.Overflow)
	}
}

// GroupSize reports how many connections are bound to gameKey.
func (h *Hub) GroupSize(gameKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[gameKey])
}
