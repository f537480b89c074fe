// internal/app/features/children/routes.go
package children

import (
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /children.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleParent))
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Get("/{id}/classes", h.Classes)
	r.Post("/{id}/watch-events", h.RecordWatch)
	r.Get("/{id}/analytics", h.Analytics)
	return r
}
