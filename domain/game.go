// Package domain contains the per-game-type session state machines.
// Everything here is pure logic: no locking, no I/O, no transport. The
// stores invoke these transitions inside their per-key critical section.
package domain

import (
	"math/rand/v2"
	"slices"

	"tero-session/errors"
)

type GameType string

const (
	GameTypeSpin GameType = "spin"
	GameTypeQuiz GameType = "quiz"
)

func ParseGameType(raw string) (GameType, error) {
	switch GameType(raw) {
	case GameTypeSpin:
		return GameTypeSpin, nil
	case GameTypeQuiz:
		return GameTypeQuiz, nil
	default:
		return "", errors.Json
	}
}

type GameCategory string

const (
	CategoryCasual  GameCategory = "casual"
	CategoryRandom  GameCategory = "random"
	CategoryLadies  GameCategory = "ladies"
	CategoryBoys    GameCategory = "boys"
	CategoryDefault GameCategory = "default"
)

// shuffled returns a uniformly permuted copy (Fisher-Yates). The input
// slice is never touched so older snapshots of a session stay intact.
func shuffled[T any](in []T) []T {
	out := slices.Clone(in)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
