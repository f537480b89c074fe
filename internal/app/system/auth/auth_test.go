package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/zozokid/internal/app/system/auth"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"go.uber.org/zap"
)

const testHashKey = "test-actor-key-must-be-32-chars-long"

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(testHashKey, "", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// echoActor writes the actor id (or "anonymous") so tests can see what
// LoadActor attached.
func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := authz.ActorCtx(r)
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(a.Role + ":" + a.ID))
	})
}

func TestNewSessionManager_KeyValidation(t *testing.T) {
	if _, err := auth.NewSessionManager("short", "", "", "", time.Hour, false, nil); err == nil {
		t.Error("expected error for short hash key")
	}
	if _, err := auth.NewSessionManager(testHashKey, "bad-block", "", "", time.Hour, false, nil); err == nil {
		t.Error("expected error for odd-sized block key")
	}
	if _, err := auth.NewSessionManager(testHashKey, "0123456789abcdef", "", "", time.Hour, false, nil); err != nil {
		t.Errorf("16-byte block key rejected: %v", err)
	}
}

func TestToken_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	tok, err := sm.IssueToken(authz.Teacher("t-1"))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	a, err := sm.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if a != authz.Teacher("t-1") {
		t.Errorf("actor = %+v", a)
	}

	if _, err := sm.ParseToken(tok + "x"); err == nil {
		t.Error("tampered token accepted")
	}
	if _, err := sm.IssueToken(authz.Actor{ID: "x", Role: "admin"}); err == nil {
		t.Error("issued token for unknown role")
	}
}

func TestToken_OtherKeyRejected(t *testing.T) {
	sm := newTestSessionManager(t)
	other, err := auth.NewSessionManager("another-actor-key-that-is-32-chars!!", "", "", "", time.Hour, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := other.IssueToken(authz.Parent("p-1"))
	if _, err := sm.ParseToken(tok); err == nil {
		t.Error("token signed with another key accepted")
	}
}

func TestLoadActor_Bearer(t *testing.T) {
	sm := newTestSessionManager(t)
	tok, _ := sm.IssueToken(authz.Parent("p-1"))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", "anonymous"},
		{"valid", "Bearer " + tok, "parent:p-1"},
		{"lowercase scheme", "bearer " + tok, "parent:p-1"},
		{"garbage", "Bearer nope", "anonymous"},
		{"basic auth", "Basic Zm9vOmJhcg==", "anonymous"},
	}
	h := sm.LoadActor(echoActor())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("actor = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSession_StartAndEnd(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/session", nil)
	if err := sm.StartSession(rec, req, authz.Parent("p-9")); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req = httptest.NewRequest("GET", "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	sm.LoadActor(echoActor()).ServeHTTP(out, req)
	if got := out.Body.String(); got != "parent:p-9" {
		t.Errorf("actor from cookie = %q", got)
	}

	end := httptest.NewRecorder()
	if err := sm.EndSession(end, req); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	for _, c := range end.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			t.Errorf("expected expiring cookie, got MaxAge %d", c.MaxAge)
		}
	}
}
