package roles

import "fmt"

// Action identifies one authorizable operation. Actions are pure data.
//
// The numeric values are positions in an ActionSet, not persisted ids, but
// new actions still go at the end of the list to keep logs comparable.
type Action uint8

const (
	Login Action = iota

	UsersCreate
	UsersGet
	UsersGetAll
	UsersUpdate
	UsersUpdateName
	UsersUpdateRole
	UsersUpdateCredentials
	UsersDelete

	UsersBansCreate
	UsersBansGet
	UsersBansGetAll
	UsersBansGetAllVisible
	UsersBansUpdate
	UsersBansDelete

	RoomsCreate
	RoomsGet
	RoomsGetVisible
	RoomsGetPublic
	RoomsGetAll
	RoomsGetAllVisible
	RoomsUpdate
	RoomsUpdateTitle
	RoomsDelete
	RoomsAccessPublic
	RoomsAccessPrivate
	RoomsAccessBanned

	RoomsUsersCreate
	RoomsUsersGet
	RoomsUsersGetAll
	RoomsUsersGetVisible
	RoomsUsersUpdate
	RoomsUsersDelete

	RoomsBansCreate
	RoomsBansGet
	RoomsBansGetAll
	RoomsBansGetAllVisible
	RoomsBansUpdate
	RoomsBansDelete

	PostsCreate
	PostsCreatePrivate
	PostsCreatePublic
	PostsGet
	PostsGetAll
	PostsGetAllVisible
	PostsUpdate
	PostsDelete

	actionCount
)

var actionNames = [actionCount]string{
	Login: "login",

	UsersCreate:            "users.create",
	UsersGet:               "users.get",
	UsersGetAll:            "users.get_all",
	UsersUpdate:            "users.update",
	UsersUpdateName:        "users.update_name",
	UsersUpdateRole:        "users.update_role",
	UsersUpdateCredentials: "users.update_credentials",
	UsersDelete:            "users.delete",

	UsersBansCreate:        "users_bans.create",
	UsersBansGet:           "users_bans.get",
	UsersBansGetAll:        "users_bans.get_all",
	UsersBansGetAllVisible: "users_bans.get_all_visible",
	UsersBansUpdate:        "users_bans.update",
	UsersBansDelete:        "users_bans.delete",

	RoomsCreate:        "rooms.create",
	RoomsGet:           "rooms.get",
	RoomsGetVisible:    "rooms.get_visible",
	RoomsGetPublic:     "rooms.get_public",
	RoomsGetAll:        "rooms.get_all",
	RoomsGetAllVisible: "rooms.get_all_visible",
	RoomsUpdate:        "rooms.update",
	RoomsUpdateTitle:   "rooms.update_title",
	RoomsDelete:        "rooms.delete",
	RoomsAccessPublic:  "rooms.access_public",
	RoomsAccessPrivate: "rooms.access_private",
	RoomsAccessBanned:  "rooms.access_banned",

	RoomsUsersCreate:     "rooms_users.create",
	RoomsUsersGet:        "rooms_users.get",
	RoomsUsersGetAll:     "rooms_users.get_all",
	RoomsUsersGetVisible: "rooms_users.get_visible",
	RoomsUsersUpdate:     "rooms_users.update",
	RoomsUsersDelete:     "rooms_users.delete",

	RoomsBansCreate:        "rooms_bans.create",
	RoomsBansGet:           "rooms_bans.get",
	RoomsBansGetAll:        "rooms_bans.get_all",
	RoomsBansGetAllVisible: "rooms_bans.get_all_visible",
	RoomsBansUpdate:        "rooms_bans.update",
	RoomsBansDelete:        "rooms_bans.delete",

	PostsCreate:        "posts.create",
	PostsCreatePrivate: "posts.create_private",
	PostsCreatePublic:  "posts.create_public",
	PostsGet:           "posts.get",
	PostsGetAll:        "posts.get_all",
	PostsGetAllVisible: "posts.get_all_visible",
	PostsUpdate:        "posts.update",
	PostsDelete:        "posts.delete",
}

// String returns the dotted action name, e.g. "rooms.delete".
func (a Action) String() string {
	if !a.Valid() {
		return "unknown"
	}
	return actionNames[a]
}

// Valid reports whether a is a declared action.
func (a Action) Valid() bool {
	return a < actionCount
}

// CheckActions returns an error naming the first action that is not
// declared.
func CheckActions(actions ...Action) error {
	for _, a := range actions {
		if !a.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownAction, uint8(a))
		}
	}
	return nil
}

// ParseAction looks an action up by its dotted name.
func ParseAction(name string) (Action, bool) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), true
		}
	}
	return 0, false
}

// AllActions lists every declared action in declaration order.
func AllActions() []Action {
	out := make([]Action, actionCount)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}
