package rbac

import (
	"log/slog"
	"net/http"

	"github.com/agora-forum/agora/internal/platform/httpx"
	"github.com/agora-forum/agora/internal/roles"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. It expects
// a principal already placed in the request context.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require ensures the current principal is granted every listed action. It
// panics on an undeclared action so a miswired route fails at startup.
func (m Middleware) Require(actions ...roles.Action) func(http.Handler) http.Handler {
	if err := roles.CheckActions(actions...); err != nil {
		panic(err)
	}
	required := roles.NewActionSet(actions...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if required.IsEmpty() {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				if m.Logger != nil {
					m.Logger.Error("rbac require: no principal in context", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			d := m.Engine.Authorize(p, required)
			if d == Allowed {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("rbac require denied",
					slog.String("decision", d.String()),
					slog.String("missing", p.Role().Actions().Missing(required).String()))
			}
			httpx.RespondError(w, d.Err())
		})
	}
}
