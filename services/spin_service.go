package services

import (
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"tero-session/auth"
	"tero-session/contract"
	"tero-session/domain"
	"tero-session/errors"
	"tero-session/moderation"
	"tero-session/store"
)

// SpinService drives the selection game: binding connections, collecting
// rounds, and running the weighted draws. Identity comes from the bind
// token; after binding, the connection id is the caller's handle.
type SpinService struct {
	log       *slog.Logger
	sessions  *store.Store[domain.SpinSession]
	conns     *store.Registry[domain.SpinSession]
	notifier  contract.Notifier
	tokens    *auth.Validator
	moderator *moderation.Moderator
}

func NewSpinService(
	log *slog.Logger,
	sessions *store.Store[domain.SpinSession],
	conns *store.Registry[domain.SpinSession],
	notifier contract.Notifier,
	tokens *auth.Validator,
	moderator *moderation.Moderator,
) *SpinService {
	return &SpinService{
		log:       log,
		sessions:  sessions,
		conns:     conns,
		notifier:  notifier,
		tokens:    tokens,
		moderator: moderator,
	}
}

// Bind attaches a connection to a spin session. The first user to bind
// becomes host and is told so.
func (s *SpinService) Bind(connID, gameKey, token string) error {
	userID, err := s.tokens.UserID(token)
	if err != nil {
		return err
	}

	var becameHost, joined bool
	session, err := s.sessions.Upsert(gameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
		before := len(sp.Players)
		next, host, err := sp.AddUser(userID)
		becameHost = host
		joined = len(next.Players) > before
		return next, err
	})
	if err != nil {
		return err
	}

	if err := s.conns.Insert(connID, gameKey, userID); err != nil {
		// Undo the join so a user without a bound connection never
		// lingers in the session. Re-binds added nobody; leave those.
		if joined {
			_, _ = s.sessions.Upsert(gameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
				next, _ := sp.Cleanup(userID)
				return next, nil
			})
		}
		return err
	}
	s.notifier.Join(connID, gameKey)

	if becameHost {
		s.log.Info("New host set for spin session", "key", gameKey)
		s.notifier.Send(connID, "host", userID)
	}
	s.notifier.Send(connID, "iterations", session.Iterations)
	s.log.Debug("User bound to spin session", "key", gameKey)
	return nil
}

// AddRound appends a (censored) round and tells the group how many
// rounds the game now has.
func (s *SpinService) AddRound(gameKey, round string) error {
	censored := s.moderator.Censor(round)

	session, err := s.sessions.Upsert(gameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
		return sp.AddRound(censored)
	})
	if err != nil {
		return err
	}

	s.notifier.Broadcast(gameKey, "iterations", session.Iterations)
	s.log.Debug("Round added to spin session", "key", gameKey)
	return nil
}

// StartGame closes the session for joins, shuffles, and opens the first
// round. Host only.
func (s *SpinService) StartGame(connID, gameKey string) error {
	conn, ok := s.conns.Get(connID)
	if !ok {
		return errors.NullReference
	}

	var round string
	session, err := s.sessions.Upsert(gameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
		next, err := sp.Start(conn.UserID)
		if err != nil {
			return next, err
		}
		next, round, err = next.NextRound(conn.UserID)
		return next, err
	})
	if err != nil {
		if errors.Code(err) == errors.GameFinished {
			s.notifier.Broadcast(gameKey, "state", domain.SpinFinished.String())
			return nil
		}
		return err
	}

	s.notifier.Broadcast(gameKey, "state", session.State.String())
	s.notifier.Send(connID, "round", round)
	s.log.Debug("Spin session started", "key", gameKey)
	return nil
}

// NextRound advances to the next round. Host only. When the rounds run
// out the group learns the game is finished.
func (s *SpinService) NextRound(connID, gameKey string) error {
	conn, ok := s.conns.Get(connID)
	if !ok {
		return errors.NullReference
	}

	var round string
	session, err := s.sessions.Upsert(gameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
		next, r, err := sp.NextRound(conn.UserID)
		round = r
		return next, err
	})
	if err != nil {
		if errors.Code(err) == errors.GameFinished {
			s.notifier.Broadcast(gameKey, "state", domain.SpinFinished.String())
			return nil
		}
		return err
	}

	s.notifier.Broadcast(gameKey, "state", session.State.String())
	s.notifier.Send(connID, "round", round)
	s.log.Debug("Spin session round initialized", "key", gameKey)
	return nil
}

// Spin draws count participants for the current round. The group first
// sees the wheel pass over everyone a random number of times, then the
// actual winners.
func (s *SpinService) Spin(connID, gameKey string, count int) error {
	if _, ok := s.conns.Get(connID); !ok {
		return errors.NullReference
	}

	var selected []uuid.UUID
	session, err := s.sessions.Upsert(gameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
		next, picks, err := sp.SelectParticipants(count)
		selected = picks
		return next, err
	})
	if err != nil {
		return err
	}

	order := session.UserIDs()
	if len(order) > 0 {
		passes := rand.IntN(6 * len(order))
		for i := 0; i < passes; i++ {
			for _, id := range order {
				s.notifier.Broadcast(gameKey, "selected", id)
			}
		}
	}
	for _, id := range selected {
		s.notifier.Broadcast(gameKey, "selected", id)
	}

	s.log.Debug("Round players selected for spin session", "key", gameKey)
	return nil
}

// Unbind handles a connection loss: remove the user from the session,
// promote a new host if the host left, and drop the group binding.
func (s *SpinService) Unbind(connID string) {
	conn, ok := s.conns.Remove(connID)
	if !ok {
		return
	}

	var newHost uuid.UUID
	_, err := s.sessions.Upsert(conn.GameKey, func(sp domain.SpinSession) (domain.SpinSession, error) {
		next, host := sp.Cleanup(conn.UserID)
		newHost = host
		return next, nil
	})
	if err != nil && errors.Code(err) != errors.GameNotFound {
		s.log.Error("Failed to clean up user from spin session",
			"key", conn.GameKey, "error", err)
	}

	if newHost != uuid.Nil {
		s.notifier.Broadcast(conn.GameKey, "host", newHost)
	}
	s.notifier.Leave(connID, conn.GameKey)
	s.log.Debug("User unbound from spin session", "key", conn.GameKey)
}
