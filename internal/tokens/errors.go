package tokens

import (
	"errors"
	"strings"
)

// Sentinel problems carried by Error. Match them with errors.Is.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrAlgorithm        = errors.New("unsupported algorithm")
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrIssuedInFuture   = errors.New("invalid issue time")
	ErrExpired          = errors.New("no longer valid")
)

// Error reports every problem found while parsing or verifying a token.
// All of them are client attributable and terminal.
type Error struct {
	Problems []error
}

func (e *Error) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "tokens: invalid token"
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Error()
	}
	return "tokens: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Problems
}

func newError(problems ...error) *Error {
	return &Error{Problems: problems}
}
