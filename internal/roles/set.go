package roles

import "strings"

// ActionSet is an unordered set of actions backed by a bitmask. The zero
// value is the empty set.
type ActionSet uint64

// Compile-time guard: an ActionSet holds at most 64 actions.
var _ [64 - actionCount]struct{}

// NewActionSet builds a set from the given actions. Invalid actions are
// ignored; callers turning a requirement into a set run CheckActions first.
func NewActionSet(actions ...Action) ActionSet {
	return ActionSet(0).With(actions...)
}

// With returns s plus the given actions.
func (s ActionSet) With(actions ...Action) ActionSet {
	for _, a := range actions {
		if a.Valid() {
			s |= 1 << a
		}
	}
	return s
}

// Union returns every action in s or o.
func (s ActionSet) Union(o ActionSet) ActionSet {
	return s | o
}

// Has reports whether a is in s.
func (s ActionSet) Has(a Action) bool {
	return a.Valid() && s&(1<<a) != 0
}

// HasAll reports whether every action of required is in s. The empty set
// is contained in everything.
func (s ActionSet) HasAll(required ActionSet) bool {
	return s&required == required
}

// Missing returns the actions of required that s lacks.
func (s ActionSet) Missing(required ActionSet) ActionSet {
	return required &^ s
}

// IsEmpty reports whether s holds no actions.
func (s ActionSet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of actions in s.
func (s ActionSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Actions lists the members of s in declaration order.
func (s ActionSet) Actions() []Action {
	out := make([]Action, 0, s.Len())
	for a := Action(0); a < actionCount; a++ {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Names lists the dotted names of the members of s.
func (s ActionSet) Names() []string {
	actions := s.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}

func (s ActionSet) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}
