package domain

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tero-session/errors"
)

type SpinState int

const (
	SpinInitialized SpinState = iota
	SpinRoundInitialized
	SpinFinished
)

func (s SpinState) String() string {
	switch s {
	case SpinInitialized:
		return "initialized"
	case SpinRoundInitialized:
		return "round_initialized"
	case SpinFinished:
		return "finished"
	default:
		return "unknown"
	}
}

type SpinPlayer struct {
	UserID      uuid.UUID `json:"user_id"`
	TimesChosen int       `json:"times_chosen"`
}

// SpinSession is the "elimination/selection" game. Players join while the
// session is open, the host starts it, and each round a weighted random
// draw picks who is up. Players live in a slice so join order is kept:
// host failover always promotes the earliest still-joined player.
type SpinSession struct {
	SpinID           uuid.UUID    `json:"spin_id"`
	BaseID           uuid.UUID    `json:"base_id"`
	HostID           uuid.UUID    `json:"host_id"`
	Name             string       `json:"name" validate:"required,max=100"`
	Description      string       `json:"description" validate:"max=500"`
	State            SpinState    `json:"state"`
	Category         GameCategory `json:"category" validate:"omitempty,oneof=casual random ladies boys default"`
	Iterations       int          `json:"iterations" validate:"gte=0"`
	CurrentIteration int          `json:"current_iteration"`
	TimesPlayed      int          `json:"times_played"`
	LastPlayed       time.Time    `json:"last_played"`
	Rounds           []string     `json:"rounds"`
	Players          []SpinPlayer `json:"players"`
}

// AddUser joins a player. The first player to join becomes host; joining
// again with the same id is a no-op. Reports whether the caller became
// host so the transport can announce it.
func (s SpinSession) AddUser(userID uuid.UUID) (SpinSession, bool, error) {
	if s.State != SpinInitialized {
		return s, false, errors.GameClosed
	}

	exists := lo.ContainsBy(s.Players, func(p SpinPlayer) bool {
		return p.UserID == userID
	})
	if exists {
		return s, false, nil
	}

	s.Players = append(slices.Clone(s.Players), SpinPlayer{UserID: userID})
	if s.HostID == uuid.Nil {
		s.HostID = userID
		return s, true, nil
	}
	return s, false, nil
}

// Cleanup removes a player, promoting the earliest remaining player to
// host when the host leaves. The returned id is the new host (uuid.Nil
// when the host did not change or nobody is left).
func (s SpinSession) Cleanup(userID uuid.UUID) (SpinSession, uuid.UUID) {
	wasHost := s.HostID == userID

	s.Players = lo.Reject(s.Players, func(p SpinPlayer, _ int) bool {
		return p.UserID == userID
	})

	if !wasHost {
		return s, uuid.Nil
	}

	if len(s.Players) == 0 {
		s.HostID = uuid.Nil
		return s, uuid.Nil
	}

	s.HostID = s.Players[0].UserID
	return s, s.HostID
}

// AddRound appends a round challenge. Only allowed before the game starts.
func (s SpinSession) AddRound(round string) (SpinSession, error) {
	if s.State != SpinInitialized {
		return s, errors.GameClosed
	}

	s.Rounds = append(slices.Clone(s.Rounds), round)
	s.Iterations++
	return s, nil
}

// Start closes the session for joins, shuffles the rounds and the player
// order so presentation is unpredictable, and opens the first round.
func (s SpinSession) Start(by uuid.UUID) (SpinSession, error) {
	if by != s.HostID {
		return s, errors.NotGameHost
	}
	switch s.State {
	case SpinFinished:
		return s, errors.GameFinished
	case SpinRoundInitialized:
		return s, errors.GameClosed
	}

	s.Rounds = shuffled(s.Rounds)
	s.Players = shuffled(s.Players)
	s.State = SpinRoundInitialized
	s.CurrentIteration = 0
	s.TimesPlayed++
	s.LastPlayed = time.Now().UTC()
	return s, nil
}

// NextRound hands out the current round text and advances. Once every
// round has been played the session transitions to its terminal state and
// GameFinished is reported alongside it.
func (s SpinSession) NextRound(by uuid.UUID) (SpinSession, string, error) {
	if by != s.HostID {
		return s, "", errors.NotGameHost
	}
	switch s.State {
	case SpinFinished:
		return s, "", errors.GameFinished
	case SpinInitialized:
		return s, "", errors.GameClosed
	}

	if s.CurrentIteration == s.Iterations {
		s.State = SpinFinished
		return s, "", errors.GameFinished
	}

	round := s.Rounds[s.CurrentIteration]
	s.CurrentIteration++
	return s, round, nil
}

// SelectParticipants draws n distinct players, favouring those chosen the
// least so far. Every full pass over the players redraws the uniform
// threshold; a player is accepted when their acceptance weight beats it.
// Players whose weight dropped to zero can no longer win a draw, so if a
// pass accepts nobody and no positive weight remains the scan falls back
// to join order. The chosen players' counters are incremented.
func (s SpinSession) SelectParticipants(n int) (SpinSession, []uuid.UUID, error) {
	if n <= 0 || len(s.Players) == 0 {
		return s, nil, nil
	}
	if n > len(s.Players) {
		n = len(s.Players)
	}

	players := slices.Clone(s.Players)
	taken := make([]bool, len(players))
	var picks []int

	for len(picks) < n {
		r := rand.Float64()
		accepted := false
		remaining := false

		for i := range players {
			if taken[i] {
				continue
			}
			w := s.acceptanceWeight(players[i])
			if w > 0 {
				remaining = true
			}
			if w > r {
				taken[i] = true
				picks = append(picks, i)
				accepted = true
				if len(picks) == n {
					break
				}
			}
		}

		if !accepted && !remaining {
			for i := range players {
				if len(picks) == n {
					break
				}
				if !taken[i] {
					taken[i] = true
					picks = append(picks, i)
				}
			}
		}
	}

	selected := make([]uuid.UUID, 0, n)
	for _, i := range picks {
		players[i].TimesChosen++
		selected = append(selected, players[i].UserID)
	}

	s.Players = players
	return s, selected, nil
}

// acceptanceWeight is 1 - times_chosen/iterations. A session without
// rounds would divide by zero; every player weighs 1 in that case.
func (s SpinSession) acceptanceWeight(p SpinPlayer) float64 {
	if s.Iterations == 0 {
		return 1
	}
	w := 1 - float64(p.TimesChosen)/float64(s.Iterations)
	if w < 0 {
		return 0
	}
	return w
}

// UserIDs returns the player ids in their current order.
func (s SpinSession) UserIDs() []uuid.UUID {
	return lo.Map(s.Players, func(p SpinPlayer, _ int) uuid.UUID {
		return p.UserID
	})
}
