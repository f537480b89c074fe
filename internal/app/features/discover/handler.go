// internal/app/features/discover/handler.go
package discover

import (
	"context"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	"github.com/dalemusser/zozokid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxQueryLen = 200

// Searcher runs a discovery query.
type Searcher interface {
	Search(ctx context.Context, query string) (youtube.SearchResult, error)
}

// Invalidator drops a channel's cached membership.
type Invalidator interface {
	Invalidate(ctx context.Context, channelID string) error
}

// Handler serves channel and video discovery.
type Handler struct {
	Search   Searcher
	Channels Invalidator
	Log      *zap.Logger
}

// NewHandler constructs a discover Handler.
func NewHandler(search Searcher, channels Invalidator, logger *zap.Logger) *Handler {
	return &Handler{Search: search, Channels: channels, Log: logger}
}

// Serve handles GET /discover?q=.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || len(q) > maxQueryLen {
		errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
			Message: "q must be between 1 and 200 characters",
			Fields:  map[string]string{"q": "required"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer cancel()

	res, err := h.Search.Search(ctx, q)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, clean(res))
}

// Refresh handles POST /discover/channels/{channelID}/refresh. The next
// addition of the channel re-reads its uploads from the platform.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "channelID"))
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Channels.Invalidate(ctx, id); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("channel cache invalidated", zap.String("channel_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// clean strips markup from text the platform returns.
func clean(res youtube.SearchResult) youtube.SearchResult {
	out := youtube.SearchResult{
		Channels: make([]youtube.ChannelResult, 0, len(res.Channels)),
		Videos:   make([]youtube.VideoResult, 0, len(res.Videos)),
	}
	for _, c := range res.Channels {
		c.Title = htmlsanitize.Text(c.Title)
		c.Description = htmlsanitize.Sanitize(c.Description)
		c.ThumbnailURL = htmlsanitize.URL(c.ThumbnailURL)
		out.Channels = append(out.Channels, c)
	}
	for _, v := range res.Videos {
		v.Title = htmlsanitize.Text(v.Title)
		v.Description = htmlsanitize.Sanitize(v.Description)
		v.ThumbnailURL = htmlsanitize.URL(v.ThumbnailURL)
		v.ChannelTitle = htmlsanitize.Text(v.ChannelTitle)
		out.Videos = append(out.Videos, v)
	}
	return out
}
