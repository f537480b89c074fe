// internal/app/features/preferences/routes.go
package preferences

import (
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /preferences.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleParent))
	r.Get("/", h.Get)
	r.Put("/", h.Put)
	return r
}
