package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tero-session/contract"
	"tero-session/errors"
	"tero-session/store"
)

// Reconciler sweeps one game type's session store and connection registry
// on a fixed interval. Expired sessions are removed and their group told
// to disconnect; expired connections get the domain cleanup (user removal
// and host failover) before being unbound. One instance runs per game
// type, both under the supervisor, so the two types sweep concurrently.
//
// Shutdown is only observed between cycles: an in-flight sweep always
// runs to completion, and every step inside a cycle is isolated so one
// key's failure never aborts the rest.
type Reconciler[S contract.Cleanupable[S]] struct {
	log      *slog.Logger
	game     string
	sessions *store.Store[S]
	conns    *store.Registry[S]
	notifier contract.Notifier
	interval time.Duration
}

func NewReconciler[S contract.Cleanupable[S]](
	log *slog.Logger,
	game string,
	sessions *store.Store[S],
	conns *store.Registry[S],
	notifier contract.Notifier,
	interval time.Duration,
) *Reconciler[S] {
	return &Reconciler[S]{
		log:      log,
		game:     game,
		sessions: sessions,
		conns:    conns,
		notifier: notifier,
		interval: interval,
	}
}

func (w *Reconciler[S]) Run(ctx context.Context) error {
	w.log.Info("Starting session reconciler", "game", w.game, "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Session reconciler stopped", "game", w.game)
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			w.sweepSessions(now)
			w.sweepConnections(now)
		}
	}
}

// sweepSessions evicts every session whose expiry has passed and tells
// its subscribers the game was shut down.
func (w *Reconciler[S]) sweepSessions(now time.Time) {
	for key, entry := range w.sessions.Snapshot() {
		if now.Before(entry.ExpiresAt) {
			continue
		}
		w.step("session sweep", key, func() {
			w.sessions.Remove(key)
			w.notifier.Broadcast(key, "disconnect", "Spillet har blitt avsluttet")
			w.notifier.DropGroup(key)
			w.log.Debug("Evicted expired session", "game", w.game, "key", key)
		})
	}
}

// sweepConnections reclaims every stale binding: the domain model removes
// the user (promoting a new host if needed), the group drops the
// connection and the registry forgets it.
func (w *Reconciler[S]) sweepConnections(now time.Time) {
	for connID, conn := range w.conns.Snapshot() {
		if now.Before(conn.ExpiresAt) {
			continue
		}
		w.step("connection sweep", connID, func() {
			var newHost uuid.UUID
			_, err := w.sessions.Upsert(conn.GameKey, func(session S) (S, error) {
				next, host := session.Cleanup(conn.UserID)
				newHost = host
				return next, nil
			})
			if err != nil {
				w.log.Error("Failed to clean up user from session",
					"game", w.game, "key", conn.GameKey, "error", err)
			}
			if newHost != uuid.Nil {
				w.notifier.Broadcast(conn.GameKey, "host", newHost)
			}

			w.notifier.Leave(connID, conn.GameKey)
			w.conns.Remove(connID)
			w.log.Debug("Reclaimed expired connection",
				"game", w.game, "connection", connID, "key", conn.GameKey)
		})
	}
}

// step isolates one sweep entry: a panic is reported as System and the
// cycle carries on with the next key.
func (w *Reconciler[S]) step(phase, key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Sweep step failed",
				"game", w.game, "phase", phase, "key", key,
				"error", errors.System, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
