// Package auth attaches the calling actor to each request.
//
// Identities come from the external identity provider as signed actor
// tokens. API clients send the token as "Authorization: Bearer <token>".
// Browser clients (the child player) exchange a token once for a session
// cookie and are identified by the cookie afterwards.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	tokenName = "zozokid-actor"

	actorIDKey   = "actor_id"
	actorRoleKey = "actor_role"
)

// ErrInvalidToken means the token failed verification, expired, or named an
// unknown role.
var ErrInvalidToken = errors.New("invalid actor token")

type claims struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	IssuedAt int64  `json:"iat"`
}

// SessionManager verifies actor tokens and manages the browser session.
type SessionManager struct {
	codec *securecookie.SecureCookie
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds a manager. hashKey signs tokens and cookies and
// must be at least 32 bytes; blockKey, when set, encrypts them and must be
// 16, 24 or 32 bytes.
func NewSessionManager(hashKey, blockKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("actor hash key must be at least 32 bytes (got %d)", len(hashKey))
	}
	var block []byte
	if blockKey != "" {
		switch len(blockKey) {
		case 16, 24, 32:
			block = []byte(blockKey)
		default:
			return nil, fmt.Errorf("actor block key must be 16, 24 or 32 bytes (got %d)", len(blockKey))
		}
	}
	if name == "" {
		name = "zozokid-session"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	codec := securecookie.New([]byte(hashKey), block)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(maxAge.Seconds()))

	store := sessions.NewCookieStore([]byte(hashKey), block)
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	return &SessionManager{codec: codec, store: store, name: name, log: logger}, nil
}

// IssueToken signs an actor token. The identity provider integration and
// tests use it; the service itself only verifies tokens.
func (m *SessionManager) IssueToken(a authz.Actor) (string, error) {
	if !a.Valid() {
		return "", ErrInvalidToken
	}
	return m.codec.Encode(tokenName, claims{ID: a.ID, Role: a.Role, IssuedAt: time.Now().Unix()})
}

// ParseToken verifies a token and returns its actor.
func (m *SessionManager) ParseToken(token string) (authz.Actor, error) {
	var c claims
	if err := m.codec.Decode(tokenName, strings.TrimSpace(token), &c); err != nil {
		return authz.Actor{}, ErrInvalidToken
	}
	a := authz.Actor{ID: c.ID, Role: strings.ToLower(c.Role)}
	if !a.Valid() {
		return authz.Actor{}, ErrInvalidToken
	}
	return a, nil
}

// LoadActor attaches the caller's actor to the request context. A bearer
// token takes precedence over the session cookie. Requests without a valid
// identity pass through anonymously; authz.RequireRole rejects them.
func (m *SessionManager) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok, ok := bearer(r); ok {
			a, err := m.ParseToken(tok)
			if err != nil {
				m.log.Debug("rejected bearer token", zap.Error(err))
			} else {
				r = r.WithContext(authz.WithActor(r.Context(), a))
			}
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.store.Get(r, m.name)
		if err == nil {
			a := authz.Actor{ID: getString(sess, actorIDKey), Role: getString(sess, actorRoleKey)}
			if a.Valid() {
				r = r.WithContext(authz.WithActor(r.Context(), a))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// StartSession stores the actor in the browser session cookie.
func (m *SessionManager) StartSession(w http.ResponseWriter, r *http.Request, a authz.Actor) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[actorIDKey] = a.ID
	sess.Values[actorRoleKey] = a.Role
	return sess.Save(r, w)
}

// EndSession clears the browser session cookie.
func (m *SessionManager) EndSession(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
