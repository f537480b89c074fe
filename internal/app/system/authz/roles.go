// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"strings"
)

// HasAnyRole reports whether the request's actor has any of the given roles.
// Returns false if no actor is present.
func HasAnyRole(r *http.Request, roles ...string) bool {
	a, ok := ActorCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if a.Role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// HasRole is a convenience wrapper for a single role.
func HasRole(r *http.Request, role string) bool {
	return HasAnyRole(r, role)
}

// RequireRole rejects requests without an actor (401) or whose actor holds
// none of the allowed roles (403). Responses are JSON error bodies.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ActorCtx(r); !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
				return
			}
			if !HasAnyRole(r, allowed...) {
				writeError(w, http.StatusForbidden, "forbidden", "this action is not available for your role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + msg + `"}`))
}
