// Package rbac decides whether a principal may perform a set of actions.
// The engine never touches storage; callers supply owner ids themselves.
package rbac

import (
	"fmt"

	"github.com/agora-forum/agora/internal/platform/httpx"
	"github.com/agora-forum/agora/internal/roles"
)

// Principal describes the actor of a request. It is either a Guest or a
// Registered user and cannot be implemented outside this package.
type Principal interface {
	Role() *roles.Role
	principal()
}

// Guest is an anonymous caller. It has a role but no identity.
type Guest struct {
	role *roles.Role
}

// NewGuest builds a guest principal holding role.
func NewGuest(role *roles.Role) Guest {
	return Guest{role: role}
}

// Role returns the guest role.
func (g Guest) Role() *roles.Role { return g.role }

func (Guest) principal() {}

func (g Guest) String() string {
	return fmt.Sprintf("guest(%v)", g.role)
}

// Registered is a caller with a verified token.
type Registered struct {
	role   *roles.Role
	userID int64
}

// NewRegistered builds a principal for userID holding role.
func NewRegistered(userID int64, role *roles.Role) Registered {
	return Registered{role: role, userID: userID}
}

// Role returns the user's role.
func (u Registered) Role() *roles.Role { return u.role }

// UserID returns the user's id.
func (u Registered) UserID() int64 { return u.userID }

func (Registered) principal() {}

func (u Registered) String() string {
	return fmt.Sprintf("user(%d, %v)", u.userID, u.role)
}

// Decision is the outcome of an authorization check.
type Decision uint8

const (
	Allowed Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// Err maps the decision onto the HTTP error taxonomy. Allowed yields nil.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case Unauthenticated:
		return httpx.ErrUnauthorized
	default:
		return httpx.ErrForbidden
	}
}
