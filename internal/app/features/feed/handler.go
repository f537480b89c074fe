// internal/app/features/feed/handler.go
package feed

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	"github.com/dalemusser/zozokid/internal/app/services/channels"
	videoqueuestore "github.com/dalemusser/zozokid/internal/app/store/videoqueue"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// VideoSource looks up a single video.
type VideoSource interface {
	VideoDetails(ctx context.Context, videoID string) (youtube.Video, error)
}

// ChannelSource resolves a channel to its short videos.
type ChannelSource interface {
	Resolve(ctx context.Context, ref models.ContentRef) (channels.Resolution, error)
}

// Handler serves the parent's own video queue.
type Handler struct {
	Queue    *videoqueuestore.Store
	Videos   VideoSource
	Channels ChannelSource
	Log      *zap.Logger
}

// NewHandler constructs a feed Handler.
func NewHandler(db *mongo.Database, videos VideoSource, chans ChannelSource, logger *zap.Logger) *Handler {
	return &Handler{
		Queue:    videoqueuestore.New(db),
		Videos:   videos,
		Channels: chans,
		Log:      logger,
	}
}

// addRequest carries either a video link or a channel id, never both.
type addRequest struct {
	Link      string `json:"link" validate:"required_without=ChannelID,excluded_with=ChannelID,max=2048"`
	ChannelID string `json:"channel_id" validate:"max=64"`
}

// List handles GET /queue.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	list, err := h.Queue.ListByParent(ctx, actor.ID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"videos": list})
}

// Add handles POST /queue: the parent pastes a video link and the video
// lands in their queue with its current metadata. With channel_id instead,
// every short video of the channel is queued.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var in addRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if in.ChannelID != "" {
		h.addChannel(w, r, models.ChannelRef(in.ChannelID))
		return
	}
	vid, ok := youtube.VideoIDFromLink(in.Link)
	if !ok {
		errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
			Message: "link is not a recognizable video link",
			Fields:  map[string]string{"link": "video_link"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer cancel()

	v, err := h.Videos.VideoDetails(ctx, vid)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}

	actor, _ := authz.ActorCtx(r)
	entry := models.VideoQueueEntry{
		ParentID:     actor.ID,
		VideoID:      v.ID,
		Title:        htmlsanitize.Text(v.Title),
		ThumbnailURL: htmlsanitize.URL(v.ThumbnailURL),
		ChannelID:    v.ChannelID,
		ChannelTitle: htmlsanitize.Text(v.ChannelTitle),
	}
	if err := h.Queue.Upsert(ctx, entry); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("video queued by parent",
		zap.String("parent_id", actor.ID),
		zap.String("video_id", v.ID))
	httpjson.Write(w, http.StatusCreated, entry)
}

func (h *Handler) addChannel(w http.ResponseWriter, r *http.Request, ref models.ContentRef) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upstream())
	defer cancel()

	res, err := h.Channels.Resolve(ctx, ref)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if len(res.Videos) == 0 {
		httpjson.Write(w, http.StatusOK, map[string]any{
			"channel_id": ref.ExternalID,
			"added":      0,
			"message":    "no short videos found in this channel",
		})
		return
	}

	actor, _ := authz.ActorCtx(r)
	entries := make([]models.VideoQueueEntry, 0, len(res.Videos))
	for _, v := range res.Videos {
		entries = append(entries, models.VideoQueueEntry{
			ParentID:     actor.ID,
			VideoID:      v.ID,
			Title:        htmlsanitize.Text(v.Title),
			ThumbnailURL: htmlsanitize.URL(v.ThumbnailURL),
			ChannelID:    v.ChannelID,
			ChannelTitle: htmlsanitize.Text(v.ChannelTitle),
		})
	}
	ur, err := h.Queue.UpsertMany(ctx, entries)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	size, err := h.Queue.Count(ctx, actor.ID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("channel queued by parent",
		zap.String("parent_id", actor.ID),
		zap.String("channel_id", ref.ExternalID),
		zap.Int("videos", len(entries)),
		zap.Int64("inserted", ur.Inserted),
		zap.Bool("cached", res.Cached))
	httpjson.Write(w, http.StatusCreated, map[string]any{
		"channel_id":      ref.ExternalID,
		"added":           ur.Inserted,
		"updated":         ur.Updated,
		"skipped_batches": res.SkippedBatches,
		"queue_size":      size,
	})
}

// Remove handles DELETE /queue/{videoID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	vid := chi.URLParam(r, "videoID")
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	n, err := h.Queue.DeleteForParents(ctx, []string{actor.ID}, []string{vid})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"deleted": n})
}

// Clear handles DELETE /queue.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	n, err := h.Queue.Clear(ctx, actor.ID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("queue cleared", zap.String("parent_id", actor.ID), zap.Int64("deleted", n))
	httpjson.Write(w, http.StatusOK, map[string]any{"deleted": n})
}
