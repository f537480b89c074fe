// internal/app/features/classes/routes.go
package classes

import (
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for the teacher's class endpoints, mounted
// under /classes.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleTeacher))

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)

	r.Post("/{id}/content", h.AddContent)
	r.Delete("/{id}/content", h.RemoveContent)

	r.Get("/{id}/requests", h.ListRequests)
	r.Post("/{id}/requests/{rid}/approve", h.Approve)
	r.Post("/{id}/requests/{rid}/deny", h.Deny)
	return r
}
