// Package apperr defines the closed set of business error kinds the core can
// return, so callers branch on kind instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one expected failure class.
type Kind string

const (
	// KindNotAParticipant: the acting user is not a member of the garden or
	// session they tried to act on.
	KindNotAParticipant Kind = "not_a_participant"
	// KindInvalidState: the entity is in the wrong status for the requested
	// action (e.g. watering a pending garden, joining a started game).
	KindInvalidState Kind = "invalid_state"
	// KindAlreadyActedToday: duplicate daily action (one water per UTC day).
	KindAlreadyActedToday Kind = "already_acted_today"
	// KindNotYourTurn: only the current picker may run round operations.
	KindNotYourTurn Kind = "not_your_turn"
	// KindQuestionPoolExhausted: the chosen category has no unused questions.
	KindQuestionPoolExhausted Kind = "question_pool_exhausted"
	// KindNotFound: the referenced entity does not exist.
	KindNotFound Kind = "not_found"
	// KindPersistence: fatal storage failure; the whole operation aborted.
	KindPersistence Kind = "persistence_failure"
)

// Error carries a machine-readable kind and a human message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an expected, user-facing error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a fatal storage error.
func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf extracts the kind from err, or KindPersistence for unknown errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
