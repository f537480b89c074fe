// internal/app/features/children/handler.go
package children

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	"github.com/dalemusser/zozokid/internal/app/services/analytics"
	"github.com/dalemusser/zozokid/internal/app/services/enrollment"
	childprofilestore "github.com/dalemusser/zozokid/internal/app/store/childprofiles"
	watcheventstore "github.com/dalemusser/zozokid/internal/app/store/watchevents"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a parent's child profiles and their activity.
type Handler struct {
	Profiles *childprofilestore.Store
	Events   *watcheventstore.Store
	Enroll   *enrollment.Service
	Log      *zap.Logger
	now      func() time.Time
}

// NewHandler constructs a children Handler.
func NewHandler(db *mongo.Database, enroll *enrollment.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Profiles: childprofilestore.New(db),
		Events:   watcheventstore.New(db),
		Enroll:   enroll,
		Log:      logger,
		now:      time.Now,
	}
}

type createRequest struct {
	Name      string `json:"name" validate:"required,max=60"`
	Age       int    `json:"age" validate:"gte=0,lte=18"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// updateRequest merges into an existing profile; omitted fields are kept.
type updateRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=60"`
	Age       *int    `json:"age" validate:"omitempty,gte=0,lte=18"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=2048"`
}

type watchEventRequest struct {
	VideoID              string    `json:"video_id" validate:"required,max=64"`
	ChannelID            string    `json:"channel_id" validate:"max=64"`
	ChannelTitle         string    `json:"channel_title" validate:"max=300"`
	VideoTitle           string    `json:"video_title" validate:"max=300"`
	VideoThumbnailURL    string    `json:"video_thumbnail_url" validate:"omitempty,url,max=2048"`
	VideoURL             string    `json:"video_url" validate:"omitempty,url,max=2048"`
	WatchDurationSeconds int       `json:"watch_duration_seconds" validate:"gte=0,lte=86400"`
	WatchedAt            time.Time `json:"watched_at"`
}

// Create handles POST /children.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	name := htmlsanitize.Text(in.Name)
	if strings.TrimSpace(name) == "" {
		errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
			Message: "name is required",
			Fields:  map[string]string{"name": "required"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	p, err := h.Profiles.Create(ctx, models.ChildProfile{
		ParentID:  actor.ID,
		Name:      name,
		Age:       in.Age,
		AvatarURL: htmlsanitize.URL(in.AvatarURL),
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, p)
}

// Update handles PATCH /children/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	var in updateRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}

	var patch childprofilestore.ProfilePatch
	if in.Name != nil {
		name := htmlsanitize.Text(*in.Name)
		if strings.TrimSpace(name) == "" {
			errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
				Message: "name cannot be blank",
				Fields:  map[string]string{"name": "required"},
			})
			return
		}
		patch.Name = &name
	}
	patch.Age = in.Age
	if in.AvatarURL != nil {
		// An empty string clears the avatar.
		u := htmlsanitize.URL(*in.AvatarURL)
		if u == "" && strings.TrimSpace(*in.AvatarURL) != "" {
			errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
				Message: "avatar_url is not a valid link",
				Fields:  map[string]string{"avatar_url": "url"},
			})
			return
		}
		patch.AvatarURL = &u
	}
	if patch.Empty() {
		errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{Message: "nothing to update"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	p, err := h.Profiles.UpdateOwned(ctx, id, actor.ID, patch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = enrollment.ErrProfileNotFound
	}
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// List handles GET /children.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	list, err := h.Profiles.ListByParent(ctx, actor.ID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"children": list})
}

// Classes handles GET /children/{id}/classes.
func (h *Handler) Classes(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	list, err := h.Enroll.ListChildClasses(ctx, actor, id)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []enrollment.ClassSummary{}
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"classes": list})
}

// owned loads the {id} profile if the calling parent owns it.
func (h *Handler) owned(ctx context.Context, r *http.Request) (models.ChildProfile, error) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		return models.ChildProfile{}, err
	}
	actor, _ := authz.ActorCtx(r)
	p, err := h.Profiles.GetOwned(ctx, id, actor.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ChildProfile{}, enrollment.ErrProfileNotFound
	}
	return p, err
}

// RecordWatch handles POST /children/{id}/watch-events.
func (h *Handler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	var in watchEventRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	child, err := h.owned(ctx, r)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	watchedAt := in.WatchedAt
	if now := h.now(); watchedAt.IsZero() || watchedAt.After(now) {
		watchedAt = now
	}
	ev, err := h.Events.Record(ctx, models.WatchEvent{
		ParentID:             child.ParentID,
		ChildProfileID:       child.ID,
		VideoID:              in.VideoID,
		ChannelID:            in.ChannelID,
		ChannelTitle:         htmlsanitize.Text(in.ChannelTitle),
		VideoTitle:           htmlsanitize.Text(in.VideoTitle),
		VideoThumbnailURL:    htmlsanitize.URL(in.VideoThumbnailURL),
		VideoURL:             htmlsanitize.URL(in.VideoURL),
		WatchDurationSeconds: in.WatchDurationSeconds,
		WatchedAt:            watchedAt,
	})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, ev)
}

// Analytics handles GET /children/{id}/analytics[?tz=America/Chicago].
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
				Message: "unknown time zone",
				Fields:  map[string]string{"tz": "timezone"},
			})
			return
		}
		loc = l
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	child, err := h.owned(ctx, r)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	events, err := h.Events.ListByChild(ctx, child.ParentID, child.ID, time.Time{})
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, analytics.Summarize(events, h.now(), loc))
}
