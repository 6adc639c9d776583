package room

import (
	"errors"
	"fmt"

	"github.com/playdicee/dicee/internal/game"
)

// Code classifies a command failure for the wire. Every rejected
// command produces exactly one error event carrying one of these.
type Code string

const (
	// CodeValidation: malformed or out-of-turn command. State unchanged.
	CodeValidation Code = "validation"
	// CodeConflict: lost a race, e.g. category already scored.
	CodeConflict Code = "conflict"
	// CodeCapacity: no seat available.
	CodeCapacity Code = "room_full"
	// CodeExpired: a reservation or reclaim window elapsed.
	CodeExpired Code = "expired"
	// CodeInternal: persistence failed; the room refuses mutation until
	// a consistent snapshot is re-established.
	CodeInternal Code = "room_unavailable"
)

// Error is a client-facing command failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func capacityf(format string, args ...any) *Error {
	return &Error{Code: CodeCapacity, Message: fmt.Sprintf(format, args...)}
}

func expiredf(format string, args ...any) *Error {
	return &Error{Code: CodeExpired, Message: fmt.Sprintf(format, args...)}
}

func internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// asError converts any error into a client-facing Error, mapping the
// game package's sentinel errors onto the taxonomy.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, game.ErrCategoryTaken):
		return conflictf("%s", err)
	case errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrUnknownPlayer),
		errors.Is(err, game.ErrNoRollYet),
		errors.Is(err, game.ErrNoRollsLeft),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrBadDie):
		return validationf("%s", err)
	default:
		return internalf("%s", err)
	}
}
