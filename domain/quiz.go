package domain

import (
	"slices"

	"github.com/google/uuid"

	"tero-session/errors"
)

type QuizState int

const (
	QuizInitialized QuizState = iota
	QuizClosed
)

func (s QuizState) String() string {
	switch s {
	case QuizInitialized:
		return "initialized"
	case QuizClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// QuizSession is the "question aggregation" game: participants submit
// questions while the session is open, then the host closes it and the
// shuffled set is handed to the platform. Closed is terminal.
type QuizSession struct {
	BaseID           uuid.UUID    `json:"base_id"`
	QuizID           uuid.UUID    `json:"quiz_id"`
	HostID           uuid.UUID    `json:"host_id"`
	Name             string       `json:"name" validate:"required,max=100"`
	Description      string       `json:"description" validate:"max=500"`
	GameType         GameType     `json:"game_type"`
	Category         GameCategory `json:"category" validate:"omitempty,oneof=casual random ladies boys default"`
	State            QuizState    `json:"state"`
	Iterations       int          `json:"iterations" validate:"gte=0"`
	CurrentIteration int          `json:"current_iteration"`
	TimesPlayed      int          `json:"times_played"`
	Questions        []string     `json:"questions"`
}

// AddQuestion appends a submitted question. Only allowed while open.
func (s QuizSession) AddQuestion(question string) (QuizSession, error) {
	if s.State != QuizInitialized {
		return s, errors.GameClosed
	}

	s.Questions = append(slices.Clone(s.Questions), question)
	s.Iterations++
	return s, nil
}

// Start shuffles the submitted questions and closes the session. The
// finalized session is returned for broadcast and persistence.
func (s QuizSession) Start() (QuizSession, error) {
	if s.State != QuizInitialized {
		return s, errors.GameClosed
	}

	s.Questions = shuffled(s.Questions)
	s.State = QuizClosed
	s.TimesPlayed++
	return s, nil
}

// Cleanup satisfies the reconciler's contract. Quiz sessions track no
// players, so losing a connection changes nothing.
func (s QuizSession) Cleanup(uuid.UUID) (QuizSession, uuid.UUID) {
	return s, uuid.Nil
}
