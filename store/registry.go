package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tero-session/errors"
)

// Conn binds a live connection to a game instance. The expiry is stamped
// once at creation and never renewed: connection liveness is bounded by
// the transport's own heartbeat, the TTL just caps how long a binding can
// outlive it.
type Conn struct {
	GameKey   string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// Registry tracks which connection belongs to which game instance. The
// type parameter pins a registry to its game type's session so the two
// game types keep fully parallel structures. No per-entry lock: each
// connection id is only ever touched by its own lifecycle events.
type Registry[T any] struct {
	mu    sync.RWMutex
	conns map[string]Conn
	ttl   time.Duration
	log   *slog.Logger
}

func NewRegistry[T any](ttl time.Duration, log *slog.Logger) *Registry[T] {
	return &Registry[T]{
		conns: make(map[string]Conn),
		ttl:   ttl,
		log:   log,
	}
}

// Insert binds a connection to a game key. A connection can only ever be
// bound once.
func (r *Registry[T]) Insert(connID, gameKey string, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return errors.KeyExists
	}

	r.conns[connID] = Conn{
		GameKey:   gameKey,
		UserID:    userID,
		ExpiresAt: time.Now().Add(r.ttl),
	}
	return nil
}

func (r *Registry[T]) Get(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	return conn, ok
}

// Remove unbinds a connection, returning what it was bound to.
func (r *Registry[T]) Remove(connID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		r.log.Debug("Tried removing a connection that is not registered", "connection", connID)
		return Conn{}, false
	}
	delete(r.conns, connID)
	return conn, true
}

// Snapshot copies the registry for the reconciler's connection sweep.
func (r *Registry[T]) Snapshot() map[string]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Conn, len(r.conns))
	for id, conn := range r.conns {
		out[id] = conn
	}
	return out
}

// Len reports the number of live bindings.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
