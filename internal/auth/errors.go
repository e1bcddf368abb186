package auth

import (
	"errors"
	"strings"

	"github.com/agora-forum/agora/internal/platform/httpx"
	"github.com/agora-forum/agora/internal/tokens"
)

// Sentinels matched with errors.Is against an *Error.
var (
	ErrUnauthenticated       = errors.New("auth: unauthenticated")
	ErrInternalInconsistency = errors.New("auth: internal inconsistency")
	ErrInvalidCredentials    = errors.New("auth: invalid credentials")
)

// Kind classifies an auth failure.
type Kind uint8

const (
	KindUnauthenticated Kind = iota + 1
	KindInternalInconsistency
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInternalInconsistency:
		return "internal_inconsistency"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// Error is a typed auth failure whose message can be shown to callers. The
// only part of Cause it repeats is the list of token problems, which stem
// from client input; everything else in Cause is for server logs.
type Error struct {
	Kind Kind
	// Reference identifies the server log entry of an internal failure.
	Reference string
	Cause     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInternalInconsistency:
		if e.Reference != "" {
			return ErrInternalInconsistency.Error() + " (reference " + e.Reference + ")"
		}
		return ErrInternalInconsistency.Error()
	case KindInvalidCredentials:
		return ErrInvalidCredentials.Error()
	default:
		var tokErr *tokens.Error
		if errors.As(e.Cause, &tokErr) && len(tokErr.Problems) > 0 {
			problems := make([]string, len(tokErr.Problems))
			for i, p := range tokErr.Problems {
				problems[i] = p.Error()
			}
			return ErrUnauthenticated.Error() + ": " + strings.Join(problems, "; ")
		}
		return ErrUnauthenticated.Error()
	}
}

// Unwrap exposes the kind sentinel, the HTTP class and the cause.
func (e *Error) Unwrap() []error {
	var errs []error
	switch e.Kind {
	case KindInternalInconsistency:
		errs = append(errs, ErrInternalInconsistency)
	case KindInvalidCredentials:
		errs = append(errs, ErrInvalidCredentials, httpx.ErrUnauthorized)
	default:
		errs = append(errs, ErrUnauthenticated, httpx.ErrUnauthorized)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func unauthenticated(cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Cause: cause}
}
