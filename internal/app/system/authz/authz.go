// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Roles an actor can hold.
const (
	RoleTeacher = "teacher"
	RoleParent  = "parent"
)

var (
	// ErrUnauthenticated means no actor is attached to the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// Actor is the authenticated caller of a service operation. ID is the
// identity provider's user id; Role is RoleTeacher or RoleParent.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Valid reports whether the actor has an id and a known role.
func (a Actor) Valid() bool {
	if strings.TrimSpace(a.ID) == "" {
		return false
	}
	return a.Role == RoleTeacher || a.Role == RoleParent
}

func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Actor) IsParent() bool  { return a.Role == RoleParent }

// Teacher builds a teacher actor.
func Teacher(id string) Actor { return Actor{ID: id, Role: RoleTeacher} }

// Parent builds a parent actor.
func Parent(id string) Actor { return Actor{ID: id, Role: RoleParent} }

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext returns the actor carried by ctx.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok && a.Valid()
}

// ActorCtx returns the request's actor and a found flag. A malformed actor
// is treated as absent.
func ActorCtx(r *http.Request) (Actor, bool) {
	return FromContext(r.Context())
}

// WithTestActor attaches an actor to a request. Used by handler tests.
func WithTestActor(r *http.Request, a Actor) *http.Request {
	return r.WithContext(WithActor(r.Context(), a))
}
