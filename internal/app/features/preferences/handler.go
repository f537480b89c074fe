// internal/app/features/preferences/handler.go
package preferences

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	preferencestore "github.com/dalemusser/zozokid/internal/app/store/preferences"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a parent's content preferences.
type Handler struct {
	Prefs *preferencestore.Store
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Prefs: preferencestore.New(db),
		Log:   logger,
	}
}

type putRequest struct {
	AllowedChannelURLs []string `json:"allowed_channel_urls" validate:"max=50,dive,required,url,max=2048"`
	AllowedCategories  []string `json:"allowed_categories" validate:"max=10,dive,oneof=kids_cartoon iq_games fun_games english_learning"`
}

// Get handles GET /preferences.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	p, err := h.Prefs.Get(ctx, actor.ID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// Put handles PUT /preferences. The body replaces both lists; an omitted
// list is saved empty.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var in putRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}

	urls := make([]string, 0, len(in.AllowedChannelURLs))
	for _, u := range in.AllowedChannelURLs {
		clean := htmlsanitize.URL(u)
		if clean == "" {
			errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
				Message: "channel links must be http or https",
				Fields:  map[string]string{"allowed_channel_urls": "url"},
			})
			return
		}
		urls = append(urls, clean)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	p, err := h.Prefs.Put(ctx, models.ParentPreferences{
		ParentID:           actor.ID,
		AllowedChannelURLs: dedupe(urls),
		AllowedCategories:  dedupe(in.AllowedCategories),
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("preferences saved",
		zap.String("parent_id", actor.ID),
		zap.Int("channels", len(p.AllowedChannelURLs)),
		zap.Int("categories", len(p.AllowedCategories)))
	httpjson.Write(w, http.StatusOK, p)
}

// dedupe keeps the first occurrence of each value.
func dedupe(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
