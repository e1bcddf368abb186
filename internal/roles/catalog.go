// Package roles declares the forum's actions and the fixed catalog of roles
// that grant them.
package roles

import (
	"errors"
	"fmt"
)

// ErrRoleNotFound is returned for an id outside the catalog or a role the
// catalog does not contain.
var (
	ErrRoleNotFound  = errors.New("roles: role not found")
	ErrUnknownAction = errors.New("roles: unknown action")
)

// Role is a named, immutable set of granted actions. Roles are compared by
// identity, so two roles with the same name and actions are still distinct.
type Role struct {
	name    string
	actions ActionSet
}

// NewRole declares a role.
func NewRole(name string, actions ActionSet) *Role {
	return &Role{name: name, actions: actions}
}

// Name returns the role name.
func (r *Role) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Actions returns the granted actions. A nil role grants nothing.
func (r *Role) Actions() ActionSet {
	if r == nil {
		return 0
	}
	return r.actions
}

// Can reports whether the role grants every action in required.
func (r *Role) Can(required ActionSet) bool {
	return r.Actions().HasAll(required)
}

func (r *Role) String() string {
	if r == nil {
		return "<nil>"
	}
	return r.name
}

// Catalog is an ordered, immutable role list. A role's id is its position,
// and ids are what gets persisted with users, so a catalog may only ever be
// extended at the end.
type Catalog struct {
	roles []*Role
	ids   map[*Role]int
}

// NewCatalog builds a catalog ordered from least to most privileged.
func NewCatalog(roles ...*Role) (*Catalog, error) {
	if len(roles) == 0 {
		return nil, errors.New("roles: catalog needs at least one role")
	}
	c := &Catalog{roles: make([]*Role, len(roles)), ids: make(map[*Role]int, len(roles))}
	for i, r := range roles {
		if r == nil {
			return nil, fmt.Errorf("roles: role %d is nil", i)
		}
		if _, dup := c.ids[r]; dup {
			return nil, fmt.Errorf("roles: role %q listed twice", r.name)
		}
		c.roles[i] = r
		c.ids[r] = i
	}
	return c, nil
}

// RoleByID maps a persisted id to its role.
func (c *Catalog) RoleByID(id int) (*Role, error) {
	if id < 0 || id >= len(c.roles) {
		return nil, fmt.Errorf("%w: id %d", ErrRoleNotFound, id)
	}
	return c.roles[id], nil
}

// IDByRole maps a role back to its id. Lookup is by identity.
func (c *Catalog) IDByRole(r *Role) (int, error) {
	id, ok := c.ids[r]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrRoleNotFound, r)
	}
	return id, nil
}

// Lowest returns the least privileged role, the one assigned to guests.
func (c *Catalog) Lowest() *Role {
	return c.roles[0]
}

// Roles returns the roles in id order.
func (c *Catalog) Roles() []*Role {
	return append([]*Role(nil), c.roles...)
}

// Len returns the number of roles.
func (c *Catalog) Len() int { return len(c.roles) }

var guestActions = NewActionSet(
	Login,
	UsersCreate,
	UsersGet,
	UsersGetAll,
	UsersBansGet,
	UsersBansGetAll,
	RoomsGetPublic,
	RoomsAccessPublic,
	RoomsBansGet,
	RoomsBansGetAllVisible,
	PostsGetAllVisible,
)

// The forum's built-in roles.
var (
	Guest = NewRole("GUEST", guestActions)
	User  = NewRole("USER", guestActions.With(PostsCreatePublic))
	Admin = NewRole("ADMIN", guestActions.With(
		UsersUpdateName,
		UsersUpdateRole,
		UsersDelete,
		UsersBansCreate,
		RoomsGet,
		RoomsGetAll,
		RoomsUpdate,
		RoomsAccessPrivate,
		RoomsAccessBanned,
		RoomsUsersGet,
		RoomsUsersGetAll,
		RoomsBansCreate,
		PostsCreate,
		PostsGet,
		PostsGetAll,
		PostsDelete,
	))
)

// DefaultCatalog returns GUEST, USER, ADMIN with ids 0, 1, 2.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Guest, User, Admin)
	if err != nil {
		panic(err)
	}
	return c
}
