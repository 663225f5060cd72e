// Package services orchestrates the session stores, the domain models
// and the outbound collaborators (hub, platform, archive). Every
// operation maps its outcome onto the closed error set; the transport
// only translates codes into user messages.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"tero-session/domain"
	"tero-session/errors"
	"tero-session/store"
)

// SessionService creates game sessions from externally issued keys and
// serialized payloads. The two game types are dispatched to their own
// store; nothing is shared between them.
type SessionService struct {
	log      *slog.Logger
	validate *validator.Validate
	spins    *store.Store[domain.SpinSession]
	quizzes  *store.Store[domain.QuizSession]
}

func NewSessionService(
	log *slog.Logger,
	spins *store.Store[domain.SpinSession],
	quizzes *store.Store[domain.QuizSession],
) *SessionService {
	return &SessionService{
		log:      log,
		validate: validator.New(),
		spins:    spins,
		quizzes:  quizzes,
	}
}

// Initiate registers a new game session under gameKey.
func (s *SessionService) Initiate(rawType, gameKey string, payload []byte) error {
	gameType, err := domain.ParseGameType(rawType)
	if err != nil {
		s.log.Warn("Rejected session with unknown game type", "game_type", rawType)
		return err
	}

	switch gameType {
	case domain.GameTypeSpin:
		err = initiate(s.validate, s.spins, gameKey, payload)
	case domain.GameTypeQuiz:
		err = initiate(s.validate, s.quizzes, gameKey, payload)
	}
	if err != nil {
		s.log.Warn("Failed to initiate session",
			"game", gameType, "key", gameKey, "error", err)
		return err
	}

	s.log.Info("Session initiated", "game", gameType, "key", gameKey)
	return nil
}

func initiate[T any](validate *validator.Validate, sessions *store.Store[T], gameKey string, payload []byte) error {
	if len(payload) == 0 {
		return errors.NullReference
	}

	var session T
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("%w: %v", errors.Json, err)
	}
	if err := validate.Struct(session); err != nil {
		return fmt.Errorf("%w: %v", errors.Json, err)
	}

	return sessions.Insert(gameKey, session)
}
