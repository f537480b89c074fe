// internal/app/features/discover/routes.go
package discover

import (
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /discover. Each search spends
// platform quota, so requests are rate limited per actor when limiter is set.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(authz.RoleTeacher, authz.RoleParent))
	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter))
	}
	r.Get("/", h.Serve)
	r.With(authz.RequireRole(authz.RoleTeacher)).
		Post("/channels/{channelID}/refresh", h.Refresh)
	return r
}
