package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tero-session/domain"
	"tero-session/errors"
	"tero-session/store"
)

func newSessionService(t *testing.T) (*SessionService, *store.Store[domain.SpinSession], *store.Store[domain.QuizSession]) {
	t.Helper()
	spins := store.New[domain.SpinSession](time.Minute, testLogger())
	quizzes := store.New[domain.QuizSession](time.Minute, testLogger())
	return NewSessionService(testLogger(), spins, quizzes), spins, quizzes
}

func Test_Initiate_Spin_Session(t *testing.T) {
	req := require.New(t)
	service, spins, _ := newSessionService(t)

	payload := []byte(`{"name": "fredagsspinn", "description": "vors", "iterations": 0}`)
	req.NoError(service.Initiate("spin", "ABC123", payload))

	req.Equal(1, spins.Len())
	session, err := spins.Upsert("ABC123", func(s domain.SpinSession) (domain.SpinSession, error) {
		return s, nil
	})
	req.NoError(err)
	req.Equal("fredagsspinn", session.Name)
}

func Test_Initiate_Quiz_Session(t *testing.T) {
	req := require.New(t)
	service, _, quizzes := newSessionService(t)

	payload := []byte(`{"name": "pubquiz"}`)
	req.NoError(service.Initiate("quiz", "DEF456", payload))

	req.Equal(1, quizzes.Len())
}

func Test_Initiate_Rejects_Unknown_Game_Type(t *testing.T) {
	req := require.New(t)
	service, _, _ := newSessionService(t)

	err := service.Initiate("chess", "ABC123", []byte(`{"name": "x"}`))

	req.ErrorIs(err, errors.Json)
}

func Test_Initiate_Rejects_Duplicate_Key(t *testing.T) {
	req := require.New(t)
	service, _, _ := newSessionService(t)
	payload := []byte(`{"name": "fredagsspinn"}`)

	req.NoError(service.Initiate("spin", "ABC123", payload))
	err := service.Initiate("spin", "ABC123", payload)

	req.ErrorIs(err, errors.KeyExists)
}

func Test_Initiate_Rejects_Empty_Payload(t *testing.T) {
	req := require.New(t)
	service, _, _ := newSessionService(t)

	err := service.Initiate("spin", "ABC123", nil)

	req.ErrorIs(err, errors.NullReference)
}

func Test_Initiate_Rejects_Malformed_Payload(t *testing.T) {
	req := require.New(t)
	service, _, _ := newSessionService(t)

	err := service.Initiate("spin", "ABC123", []byte(`{"name": `))

	req.ErrorIs(err, errors.Json)
}

func Test_Initiate_Validates_The_Session(t *testing.T) {
	req := require.New(t)
	service, spins, _ := newSessionService(t)

	// Name is required
	err := service.Initiate("spin", "ABC123", []byte(`{"description": "no name"}`))

	req.ErrorIs(err, errors.Json)
	req.Equal(0, spins.Len())
}
