package preferences_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/zozokid/internal/app/features/preferences"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/dalemusser/zozokid/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func setup(t *testing.T) chi.Router {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return preferences.Routes(preferences.NewHandler(db, zap.NewNop()))
}

func serve(router chi.Router, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func get(t *testing.T, router chi.Router, parent authz.Actor) models.ParentPreferences {
	t.Helper()
	rec := serve(router, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/", nil, parent))
	rec.AssertStatus(t, http.StatusOK)
	var p models.ParentPreferences
	rec.DecodeJSON(t, &p)
	return p
}

func TestGet_Default(t *testing.T) {
	router := setup(t)
	p := get(t, router, authz.Parent("P1"))
	if p.ParentID != "P1" || len(p.AllowedChannelURLs) != 0 || len(p.AllowedCategories) != 0 {
		t.Errorf("default = %+v", p)
	}
	rec := serve(router, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/", nil, authz.Parent("P1")))
	rec.AssertContains(t, `"allowed_channel_urls":[]`)
}

func TestPut_SavesAndDedupes(t *testing.T) {
	router := setup(t)
	parent := authz.Parent("P1")

	rec := serve(router, testutil.NewAuthenticatedRequest(t, http.MethodPut, "/", map[string]any{
		"allowed_channel_urls": []string{"https://www.youtube.com/@numbers", "https://www.youtube.com/@numbers"},
		"allowed_categories":   []string{models.CategoryIQGames, models.CategoryFunGames, models.CategoryIQGames},
	}, parent))
	rec.AssertStatus(t, http.StatusOK)

	p := get(t, router, parent)
	if len(p.AllowedChannelURLs) != 1 || len(p.AllowedCategories) != 2 {
		t.Errorf("saved = %+v", p)
	}
	if other := get(t, router, authz.Parent("P2")); len(other.AllowedCategories) != 0 {
		t.Errorf("other parent = %+v, want empty", other)
	}

	rec = serve(router, testutil.NewAuthenticatedRequest(t, http.MethodPut, "/", map[string]any{
		"allowed_categories": []string{models.CategoryKidsCartoon},
	}, parent))
	rec.AssertStatus(t, http.StatusOK)
	p = get(t, router, parent)
	if len(p.AllowedChannelURLs) != 0 || len(p.AllowedCategories) != 1 {
		t.Errorf("replaced = %+v", p)
	}
}

func TestPut_Validation(t *testing.T) {
	router := setup(t)
	parent := authz.Parent("P1")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown category", map[string]any{"allowed_categories": []string{"horror"}}},
		{"not a url", map[string]any{"allowed_channel_urls": []string{"numbers channel"}}},
		{"not http", map[string]any{"allowed_channel_urls": []string{"ftp://example.com/x"}}},
		{"blank url", map[string]any{"allowed_channel_urls": []string{""}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, testutil.NewAuthenticatedRequest(t, http.MethodPut, "/", tc.body, parent))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
	if p := get(t, router, parent); len(p.AllowedChannelURLs) != 0 || len(p.AllowedCategories) != 0 {
		t.Errorf("rejected puts saved %+v", p)
	}
}

func TestTeacherRejected(t *testing.T) {
	router := setup(t)
	rec := serve(router, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/", nil, authz.Teacher("T1")))
	rec.AssertStatus(t, http.StatusForbidden)
}
