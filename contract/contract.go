//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Notifier pushes named events to the connections bound to a game key.
// Delivery is fire and forget: no acknowledgement, no replay.
type Notifier interface {
	Broadcast(gameKey, event string, data any)
	Send(connID, event string, data any)
	Join(connID, gameKey string)
	Leave(connID, gameKey string)
	DropGroup(gameKey string)
}

// Cleanupable is the cleanup contract the reconciler invokes when a
// connection is reclaimed: remove the user from the session and report a
// promoted host (uuid.Nil when none).
type Cleanupable[S any] interface {
	Cleanup(userID uuid.UUID) (S, uuid.UUID)
}

// Persister hands finished games to the upstream platform. The core does
// not retry these calls.
type Persister interface {
	PersistGame(ctx context.Context, game any) error
	FreeGameKey(ctx context.Context, gameKey string) error
}

// TokenSource supplies a machine-to-machine bearer token for outbound
// platform calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
