package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tero-session/auth"
	"tero-session/domain"
	"tero-session/moderation"
	"tero-session/repositories"
)

const signingSecret = "test-signing-secret"

type notification struct {
	Target string
	Event  string
	Data   any
}

type fakeNotifier struct {
	mu         sync.Mutex
	broadcasts []notification
	sends      []notification
	joined     []string
	left       []string
	dropped    []string
}

func (f *fakeNotifier) Broadcast(gameKey, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, notification{gameKey, event, data})
}

func (f *fakeNotifier) Send(connID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, notification{connID, event, data})
}

func (f *fakeNotifier) Join(connID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, connID)
}

func (f *fakeNotifier) Leave(connID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, connID)
}

func (f *fakeNotifier) DropGroup(gameKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, gameKey)
}

func (f *fakeNotifier) eventsNamed(event string) []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification
	for _, n := range f.broadcasts {
		if n.Event == event {
			out = append(out, n)
		}
	}
	for _, n := range f.sends {
		if n.Event == event {
			out = append(out, n)
		}
	}
	return out
}

type fakePersister struct {
	mu        sync.Mutex
	persisted []any
	freedKeys []string
	err       error
}

func (f *fakePersister) PersistGame(_ context.Context, game any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.persisted = append(f.persisted, game)
	return nil
}

func (f *fakePersister) FreeGameKey(_ context.Context, gameKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.freedKeys = append(f.freedKeys, gameKey)
	return nil
}

type fakeArchive struct {
	mu     sync.Mutex
	stored []repositories.ArchivedGame
}

func (f *fakeArchive) StoreFinished(game repositories.ArchivedGame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, game)
	return nil
}

func (f *fakeArchive) List(_ domain.GameType, _ *string) ([]repositories.ArchivedGame, *string, error) {
	return nil, nil, nil
}

func bindToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.IssueBindToken(signingSecret, userID, time.Minute)
	require.NoError(t, err)
	return token
}

func testModerator(t *testing.T) *moderation.Moderator {
	t.Helper()
	mod, err := moderation.New([]string{"badger"}, '*')
	require.NoError(t, err)
	return mod
}

func testLogger() *slog.Logger {
	return slog.Default()
}
