// internal/app/features/feed/routes.go
package feed

import (
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /queue.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleParent))
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Delete("/", h.Clear)
	r.Delete("/{videoID}", h.Remove)
	return r
}
