// Package errors defines the closed set of error codes shared by the
// stores, the domain models and the transport boundary. Every operation
// in the core returns one of these values instead of an ad hoc error so
// callers can branch on data.
package errors

import "errors"

type Error int

const (
	KeyExists Error = iota + 1
	NotGameHost
	GameClosed
	GameFinished
	GameNotFound
	System
	Json
	NullReference
	Overflow
	Http
	Upstream
)

var ErrWorkerPanic = errors.New("worker panic")

func (e Error) Error() string {
	switch e {
	case KeyExists:
		return "key exists"
	case NotGameHost:
		return "not game host"
	case GameClosed:
		return "game closed"
	case GameFinished:
		return "game finished"
	case GameNotFound:
		return "game not found"
	case System:
		return "system"
	case Json:
		return "json"
	case NullReference:
		return "null reference"
	case Overflow:
		return "overflow"
	case Http:
		return "http"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Is lets the taxonomy work with the stdlib errors helpers.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t == e
}

// Code extracts the taxonomy value from any error, unwrapping if needed.
// Unexpected errors collapse to System so the boundary never leaks
// internals to a client.
func Code(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return System
}

// UserMessage maps an error code to the text sent back to the caller.
// The platform's clients are Norwegian, matching the rest of the product.
func UserMessage(err error) string {
	switch Code(err) {
	case GameNotFound:
		return "Spillet finnes ikke"
	case GameClosed:
		return "Spillet er lukket for fler handlinger"
	case GameFinished:
		return "Spillet er ferdig"
	case NotGameHost:
		return "Kun verten kan gjøre dette"
	case KeyExists:
		return "Spillnøkkelen er allerede i bruk"
	default:
		return "En feil har skjedd, forsøk igjen senere"
	}
}
