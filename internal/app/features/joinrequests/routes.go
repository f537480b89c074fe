// internal/app/features/joinrequests/routes.go
package joinrequests

import (
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /join-requests. limiter may be
// nil to disable rate limiting.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleParent))
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(ratelimit.Middleware(limiter))
		}
		r.Post("/", h.Create)
	})
	return r
}
