package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tero-session/auth"
	"tero-session/contract"
	"tero-session/domain"
	"tero-session/moderation"
	"tero-session/repositories"
	"tero-session/store"
)

// QuizService drives the aggregation game: participants submit questions
// until the session is closed, then the finalized set is broadcast,
// archived and handed to the platform.
type QuizService struct {
	log       *slog.Logger
	sessions  *store.Store[domain.QuizSession]
	conns     *store.Registry[domain.QuizSession]
	notifier  contract.Notifier
	tokens    *auth.Validator
	moderator *moderation.Moderator
	archive   repositories.IArchiveRepository
	platform  contract.Persister
}

func NewQuizService(
	log *slog.Logger,
	sessions *store.Store[domain.QuizSession],
	conns *store.Registry[domain.QuizSession],
	notifier contract.Notifier,
	tokens *auth.Validator,
	moderator *moderation.Moderator,
	archive repositories.IArchiveRepository,
	platform contract.Persister,
) *QuizService {
	return &QuizService{
		log:       log,
		sessions:  sessions,
		conns:     conns,
		notifier:  notifier,
		tokens:    tokens,
		moderator: moderator,
		archive:   archive,
		platform:  platform,
	}
}

// Bind attaches a connection to a quiz session. Quiz sessions track no
// players; binding only registers the connection for notifications.
func (s *QuizService) Bind(connID, gameKey, token string) error {
	userID, err := s.tokens.UserID(token)
	if err != nil {
		return err
	}

	session, err := s.sessions.Upsert(gameKey, func(q domain.QuizSession) (domain.QuizSession, error) {
		return q, nil
	})
	if err != nil {
		return err
	}

	if err := s.conns.Insert(connID, gameKey, userID); err != nil {
		return err
	}
	s.notifier.Join(connID, gameKey)
	s.notifier.Send(connID, "iterations", session.Iterations)
	s.log.Debug("User bound to quiz session", "key", gameKey)
	return nil
}

// AddQuestion appends a (censored) submitted question.
func (s *QuizService) AddQuestion(gameKey, question string) error {
	censored := s.moderator.Censor(question)

	session, err := s.sessions.Upsert(gameKey, func(q domain.QuizSession) (domain.QuizSession, error) {
		return q.AddQuestion(censored)
	})
	if err != nil {
		return err
	}

	s.notifier.Broadcast(gameKey, "iterations", session.Iterations)
	s.log.Debug("Question added to quiz session", "key", gameKey)
	return nil
}

// StartGame closes the session: the shuffled question set goes to the
// group, the archive and the platform, then the key is released. The
// outbound calls are best effort; a platform hiccup never blocks the
// teardown.
func (s *QuizService) StartGame(ctx context.Context, gameKey string) error {
	session, err := s.sessions.Upsert(gameKey, func(q domain.QuizSession) (domain.QuizSession, error) {
		return q.Start()
	})
	if err != nil {
		return err
	}

	s.notifier.Broadcast(gameKey, "game", session)

	if payload, err := json.Marshal(session); err != nil {
		s.log.Error("Failed to serialize finished quiz", "key", gameKey, "error", err)
	} else {
		err = s.archive.StoreFinished(repositories.ArchivedGame{
			GameType:   domain.GameTypeQuiz,
			GameKey:    gameKey,
			FinishedAt: time.Now().UTC(),
			Payload:    payload,
		})
		if err != nil {
			s.log.Error("Failed to archive finished quiz", "key", gameKey, "error", err)
		}
	}

	if err := s.platform.PersistGame(ctx, session); err != nil {
		s.log.Error("Failed to persist finished quiz to platform", "key", gameKey, "error", err)
	}
	if err := s.platform.FreeGameKey(ctx, gameKey); err != nil {
		s.log.Error("Failed to free game key", "key", gameKey, "error", err)
	}

	s.sessions.Remove(gameKey)
	s.notifier.DropGroup(gameKey)
	s.log.Info("Quiz session finished", "key", gameKey)
	return nil
}

// Unbind drops a lost connection. No user state to clean up.
func (s *QuizService) Unbind(connID string) {
	conn, ok := s.conns.Remove(connID)
	if !ok {
		return
	}
	s.notifier.Leave(connID, conn.GameKey)
	s.log.Debug("User unbound from quiz session", "key", conn.GameKey)
}
