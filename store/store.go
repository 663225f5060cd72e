// Package store holds the in-memory session state: a keyed store with
// per-key exclusive mutation and TTL expiry, and the registry binding
// live connections to game keys. Memory only; nothing survives a restart.
package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tero-session/errors"
)

// Entry is the point-in-time view of a stored session handed to sweepers.
type Entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

type cached[T any] struct {
	value     T
	expiresAt time.Time
}

// Store maps a game key to its session payload. Each key owns exactly one
// mutex, created by Insert and destroyed by Remove, so mutations on one
// key serialize while unrelated keys proceed in parallel. The outer
// RWMutex only guards the two maps, never a mutator invocation.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]*cached[T]
	locks   map[string]*sync.Mutex
	ttl     time.Duration
	log     *slog.Logger
}

func New[T any](ttl time.Duration, log *slog.Logger) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*cached[T]),
		locks:   make(map[string]*sync.Mutex),
		ttl:     ttl,
		log:     log,
	}
}

// Insert stores a new session under key with a fresh expiry. Keys are
// never overwritten implicitly.
func (s *Store[T]) Insert(key string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return errors.KeyExists
	}

	s.entries[key] = &cached[T]{value: value, expiresAt: time.Now().Add(s.ttl)}
	s.locks[key] = &sync.Mutex{}
	return nil
}

// Upsert runs fn against the current payload under the key's lock and
// installs whatever fn returns, re-arming the expiry. fn's error is
// passed through untouched so domain codes (GameClosed, GameFinished, ...)
// reach the caller; a transition that errors may still have advanced the
// state it returned. A panicking fn is reported as System and leaves the
// stored payload alone.
//
// The lock held is compared against the lock map before reading and
// before installing: a key removed (or removed and reissued) while this
// mutation was in flight belongs to a new generation, so the result is
// discarded and GameNotFound reported instead of clobbering the new
// entry.
func (s *Store[T]) Upsert(key string, fn func(T) (T, error)) (value T, err error) {
	s.mu.RLock()
	lock, ok := s.locks[key]
	s.mu.RUnlock()
	if !ok {
		return value, errors.GameNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	entry, ok := s.entries[key]
	stale := s.locks[key] != lock
	var current T
	if ok {
		current = entry.value
	}
	s.mu.RUnlock()
	if !ok || stale {
		// Key was removed, possibly reissued, while we were waiting
		// on its lock.
		return value, errors.GameNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Session mutator panicked", "key", key, "panic", fmt.Sprint(r))
			err = errors.System
		}
	}()

	next, fnErr := fn(current)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] != lock {
		return value, errors.GameNotFound
	}
	if entry, ok := s.entries[key]; ok {
		entry.value = next
		entry.expiresAt = time.Now().Add(s.ttl)
	}

	return next, fnErr
}

// Remove deletes the entry and its lock together. Removing an absent key
// is a no-op; either both exist or neither does.
func (s *Store[T]) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		s.log.Warn("Tried removing a session that is not in the store", "key", key)
	}
	delete(s.entries, key)
	delete(s.locks, key)
}

// Snapshot copies the store so the reconciler can iterate without holding
// any entry lock. Entries mutated after the copy keep their new state;
// the sweep only acts on what it saw.
func (s *Store[T]) Snapshot() map[string]Entry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry[T], len(s.entries))
	for key, entry := range s.entries {
		out[key] = Entry[T]{Value: entry.value, ExpiresAt: entry.expiresAt}
	}
	return out
}

// Len reports the number of live sessions.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
