package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agora-forum/agora/internal/platform/httpx"
)

// Handler exposes the catalog read-only.
type Handler struct {
	logger  *slog.Logger
	catalog *Catalog
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, catalog *Catalog) *Handler {
	return &Handler{logger: logger, catalog: catalog}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Get("/actions", h.listActions)
}

type roleView struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	out := make([]roleView, 0, h.catalog.Len())
	for id, role := range h.catalog.Roles() {
		out = append(out, roleView{ID: id, Name: role.Name(), Actions: role.Actions().Names()})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listActions(w http.ResponseWriter, r *http.Request) {
	all := NewActionSet(AllActions()...)
	httpx.JSON(w, http.StatusOK, all.Names())
}
