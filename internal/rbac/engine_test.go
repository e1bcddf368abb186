package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-forum/agora/internal/platform/httpx"
	"github.com/agora-forum/agora/internal/roles"
)

var (
	onlyA   = roles.NewRole("ONLY_A", roles.NewActionSet(roles.RoomsCreate))
	minimal = roles.NewRole("USER", roles.NewActionSet(roles.Login, roles.PostsCreatePublic))
)

type recordingObserver struct {
	decisions []Decision
}

func (o *recordingObserver) ObserveDecision(_ roles.ActionSet, d Decision) {
	o.decisions = append(o.decisions, d)
}

func TestAuthorize(t *testing.T) {
	engine := NewEngine(nil)
	tests := []struct {
		name       string
		principal  Principal
		actions    []roles.Action
		allowedIDs []int64
		want       Decision
	}{
		{name: "role grants action", principal: NewRegistered(1, minimal), actions: []roles.Action{roles.PostsCreatePublic}, want: Allowed},
		{name: "role grants every action", principal: NewRegistered(1, minimal), actions: []roles.Action{roles.Login, roles.PostsCreatePublic}, want: Allowed},
		{name: "guest granted by role", principal: NewGuest(roles.Guest), actions: []roles.Action{roles.Login}, want: Allowed},
		{name: "all of, registered", principal: NewRegistered(1, onlyA), actions: []roles.Action{roles.RoomsCreate, roles.RoomsDelete}, want: Forbidden},
		{name: "all of, guest", principal: NewGuest(onlyA), actions: []roles.Action{roles.RoomsCreate, roles.RoomsDelete}, want: Unauthenticated},
		{name: "guest with allowed ids", principal: NewGuest(roles.Guest), actions: []roles.Action{roles.UsersDelete}, allowedIDs: []int64{0, 1, 2}, want: Unauthenticated},
		{name: "guest without allowed ids", principal: NewGuest(roles.Guest), actions: []roles.Action{roles.UsersDelete}, want: Unauthenticated},
		{name: "owner listed", principal: NewRegistered(5, minimal), actions: []roles.Action{roles.PostsUpdate}, allowedIDs: []int64{5, 9}, want: Allowed},
		{name: "owner not listed", principal: NewRegistered(7, minimal), actions: []roles.Action{roles.PostsUpdate}, allowedIDs: []int64{5, 9}, want: Forbidden},
		{name: "user deletes own room", principal: NewRegistered(3, minimal), actions: []roles.Action{roles.RoomsDelete}, allowedIDs: []int64{3}, want: Allowed},
		{name: "user deletes foreign room", principal: NewRegistered(3, minimal), actions: []roles.Action{roles.RoomsDelete}, allowedIDs: []int64{9}, want: Forbidden},
		{name: "no allowed ids", principal: NewRegistered(3, minimal), actions: []roles.Action{roles.RoomsDelete}, want: Forbidden},
		{name: "admin by role", principal: NewRegistered(1, roles.Admin), actions: []roles.Action{roles.UsersDelete, roles.PostsDelete}, want: Allowed},
		{name: "empty action set", principal: NewGuest(roles.Guest), want: Allowed},
		{name: "nil principal", principal: nil, actions: []roles.Action{roles.Login}, want: Unauthenticated},
		{name: "pointer registered", principal: &Registered{role: minimal, userID: 4}, actions: []roles.Action{roles.RoomsDelete}, allowedIDs: []int64{4}, want: Allowed},
		{name: "pointer guest", principal: &Guest{role: roles.Guest}, actions: []roles.Action{roles.RoomsDelete}, allowedIDs: []int64{0}, want: Unauthenticated},
		{name: "nil role", principal: NewRegistered(2, nil), actions: []roles.Action{roles.Login}, want: Forbidden},
		{name: "undeclared action, guest", principal: NewGuest(roles.Guest), actions: []roles.Action{roles.Action(200)}, want: Unauthenticated},
		{name: "undeclared action, admin", principal: NewRegistered(1, roles.Admin), actions: []roles.Action{roles.Action(200)}, want: Forbidden},
		{name: "undeclared action, owner listed", principal: NewRegistered(5, roles.User), actions: []roles.Action{roles.Action(200)}, allowedIDs: []int64{5}, want: Forbidden},
		{name: "undeclared among granted", principal: NewRegistered(1, roles.Admin), actions: []roles.Action{roles.Login, roles.Action(64)}, want: Forbidden},
		{name: "undeclared action, nil principal", principal: nil, actions: []roles.Action{roles.Action(200)}, want: Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.AuthorizeActions(tt.principal, tt.actions, tt.allowedIDs...)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestAuthorizeNeverAllowsPartialGrant(t *testing.T) {
	engine := NewEngine(nil)
	for _, a := range roles.AllActions() {
		if minimal.Actions().Has(a) {
			continue
		}
		required := roles.NewActionSet(roles.Login, a)
		assert.NotEqual(t, Allowed, engine.Authorize(NewRegistered(1, minimal), required), a.String())
		assert.NotEqual(t, Allowed, engine.Authorize(NewGuest(minimal), required), a.String())
	}
}

func TestAuthorizeNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	engine := NewEngine(obs)

	engine.Authorize(NewGuest(roles.Guest), roles.NewActionSet(roles.Login))
	engine.Authorize(NewGuest(roles.Guest), roles.NewActionSet(roles.PostsDelete))
	engine.Authorize(NewRegistered(1, roles.User), roles.NewActionSet(roles.PostsDelete))

	assert.Equal(t, []Decision{Allowed, Unauthenticated, Forbidden}, obs.decisions)
}

func TestAuthorizeActionsUndeclaredNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	NewEngine(obs).AuthorizeActions(NewRegistered(1, roles.Admin), []roles.Action{roles.Action(200)})
	assert.Equal(t, []Decision{Forbidden}, obs.decisions)
}

func TestNilEngineStillDecides(t *testing.T) {
	var engine *Engine
	assert.Equal(t, Allowed, engine.Authorize(NewGuest(roles.Guest), roles.NewActionSet(roles.Login)))
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Allowed.Err())
	assert.ErrorIs(t, Unauthenticated.Err(), httpx.ErrUnauthorized)
	assert.ErrorIs(t, Forbidden.Err(), httpx.ErrForbidden)
	assert.Equal(t, "forbidden", Forbidden.String())
}

func TestPrincipalAccessors(t *testing.T) {
	u := NewRegistered(42, roles.Admin)
	assert.Equal(t, int64(42), u.UserID())
	assert.Same(t, roles.Admin, u.Role())
	assert.Equal(t, "user(42, ADMIN)", u.String())

	g := NewGuest(roles.Guest)
	assert.Same(t, roles.Guest, g.Role())
	assert.Equal(t, "guest(GUEST)", g.String())
}

func TestRequireMiddleware(t *testing.T) {
	m := Middleware{Engine: NewEngine(nil)}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name      string
		principal Principal
		actions   []roles.Action
		want      int
	}{
		{name: "allowed", principal: NewRegistered(1, roles.User), actions: []roles.Action{roles.PostsCreatePublic}, want: http.StatusNoContent},
		{name: "guest denied", principal: NewGuest(roles.Guest), actions: []roles.Action{roles.PostsCreatePublic}, want: http.StatusUnauthorized},
		{name: "user denied", principal: NewRegistered(1, roles.User), actions: []roles.Action{roles.PostsDelete}, want: http.StatusForbidden},
		{name: "no principal", actions: []roles.Action{roles.Login}, want: http.StatusUnauthorized},
		{name: "nothing required", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()
			m.Require(tt.actions...)(ok).ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequirePanicsOnUndeclaredAction(t *testing.T) {
	m := Middleware{Engine: NewEngine(nil)}
	assert.Panics(t, func() { m.Require(roles.Action(99)) })
	assert.Panics(t, func() { m.Require(roles.Login, roles.Action(200)) })
	assert.NotPanics(t, func() { m.Require() })
}
