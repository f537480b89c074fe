package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeacherActor returns a teacher with a fresh id.
func TeacherActor() authz.Actor {
	return authz.Teacher("teacher-" + primitive.NewObjectID().Hex())
}

// ParentActor returns a parent with a fresh id.
func ParentActor() authz.Actor {
	return authz.Parent("parent-" + primitive.NewObjectID().Hex())
}

// WithActor adds an actor to the request context for testing authenticated
// handlers. This bypasses the session middleware.
func WithActor(r *http.Request, a authz.Actor) *http.Request {
	return authz.WithTestActor(r, a)
}

// NewRequest creates an HTTP request for testing. A non-nil body is encoded
// as JSON.
func NewRequest(t testing.TB, method, target string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode request body: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with an actor in context.
func NewAuthenticatedRequest(t testing.TB, method, target string, body any, a authz.Actor) *http.Request {
	t.Helper()
	return WithActor(NewRequest(t, method, target, body), a)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t testing.TB, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, strings.TrimSpace(r.Body.String()))
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t testing.TB, expected string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into dst.
func (r *ResponseRecorder) DecodeJSON(t testing.TB, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, r.Body.String())
	}
}
