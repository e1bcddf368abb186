package rbac

import (
	"slices"

	"github.com/agora-forum/agora/internal/roles"
)

// Observer is notified of every decision the engine makes.
type Observer interface {
	ObserveDecision(required roles.ActionSet, d Decision)
}

// Engine evaluates role grants with an optional owner exception. It holds
// no mutable state and is safe for concurrent use.
type Engine struct {
	observer Observer
}

// NewEngine builds an engine. observer may be nil.
func NewEngine(observer Observer) *Engine {
	return &Engine{observer: observer}
}

// Authorize decides whether p may perform every action in required.
//
// The role must grant all of required; callers wanting any-of semantics
// call once per action. When the role falls short, a Guest is
// Unauthenticated, and a Registered user listed in allowedIDs is Allowed.
// Everyone else is Forbidden. An empty required set is always Allowed.
func (e *Engine) Authorize(p Principal, required roles.ActionSet, allowedIDs ...int64) Decision {
	d := decide(p, required, allowedIDs)
	if e != nil && e.observer != nil {
		e.observer.ObserveDecision(required, d)
	}
	return d
}

// AuthorizeActions is Authorize for a list of actions. A list holding an
// undeclared action can never be granted: a Guest is Unauthenticated and
// everyone else is Forbidden, owners included.
func (e *Engine) AuthorizeActions(p Principal, actions []roles.Action, allowedIDs ...int64) Decision {
	required := roles.NewActionSet(actions...)
	if roles.CheckActions(actions...) != nil {
		d := deny(p)
		if e != nil && e.observer != nil {
			e.observer.ObserveDecision(required, d)
		}
		return d
	}
	return e.Authorize(p, required, allowedIDs...)
}

func decide(p Principal, required roles.ActionSet, allowedIDs []int64) Decision {
	if p == nil {
		return Unauthenticated
	}
	if p.Role().Can(required) {
		return Allowed
	}
	switch u := p.(type) {
	case Registered:
		return ownerDecision(u.userID, allowedIDs)
	case *Registered:
		return ownerDecision(u.userID, allowedIDs)
	default:
		return deny(p)
	}
}

// deny is the decision for a requirement the role cannot meet, ignoring any
// owner exception.
func deny(p Principal) Decision {
	switch p.(type) {
	case nil, Guest, *Guest:
		return Unauthenticated
	default:
		// Principal is sealed; an unlisted variant fails closed.
		return Forbidden
	}
}

func ownerDecision(userID int64, allowedIDs []int64) Decision {
	if slices.Contains(allowedIDs, userID) {
		return Allowed
	}
	return Forbidden
}
