// internal/app/features/classes/handler.go
package classes

import (
	"context"
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	"github.com/dalemusser/zozokid/internal/app/services/classcontent"
	"github.com/dalemusser/zozokid/internal/app/services/classteardown"
	"github.com/dalemusser/zozokid/internal/app/services/enrollment"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the teacher's class endpoints.
type Handler struct {
	Content  *classcontent.Engine
	Enroll   *enrollment.Service
	Teardown *classteardown.Service
	Log      *zap.Logger
}

// NewHandler constructs a classes Handler.
func NewHandler(content *classcontent.Engine, enroll *enrollment.Service, teardown *classteardown.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Content:  content,
		Enroll:   enroll,
		Teardown: teardown,
		Log:      logger,
	}
}

type createRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// classResponse adds the join code parents type to the stored class.
type classResponse struct {
	models.Class
	Code string `json:"code"`
}

func newClassResponse(c models.Class) classResponse {
	return classResponse{Class: c, Code: c.Code()}
}

// addContentRequest names content either by kind and id (as picked from
// search results) or by a pasted video link.
type addContentRequest struct {
	Kind         string `json:"kind" validate:"omitempty,oneof=video channel"`
	ExternalID   string `json:"external_id" validate:"required_without=Link,max=64"`
	Link         string `json:"link" validate:"max=2048"`
	Title        string `json:"title" validate:"max=300"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
}

type removeContentRequest struct {
	ExternalID string    `json:"external_id" validate:"required,max=64"`
	AddedAt    time.Time `json:"added_at" validate:"required"`
}

// noVideosResponse answers a channel addition that found nothing to add.
// It is not an error: the class is unchanged.
type noVideosResponse struct {
	Added   bool   `json:"added"`
	Message string `json:"message"`
}

func actorOf(r *http.Request) authz.Actor {
	a, _ := authz.ActorCtx(r)
	return a
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	errorsfeature.Write(w, r, h.Log, err)
}

// Create handles POST /classes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Content.CreateClass(ctx, actorOf(r), in.Name, in.AvatarURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, newClassResponse(c))
}

// List handles GET /classes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Content.ListClasses(ctx, actorOf(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]classResponse, 0, len(list))
	for _, c := range list {
		out = append(out, newClassResponse(c))
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"classes": out})
}

// Get handles GET /classes/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Content.GetClass(ctx, actorOf(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, newClassResponse(c))
}

// Delete handles DELETE /classes/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rep, err := h.Teardown.DeleteClass(ctx, actorOf(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rep)
}

// AddContent handles POST /classes/{id}/content.
func (h *Handler) AddContent(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in addContentRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	ref, err := in.ref()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Content.AddContent(ctx, actorOf(r), id, ref, classcontent.Display{
		Title:        in.Title,
		ThumbnailURL: in.ThumbnailURL,
	})
	if errors.Is(err, classcontent.ErrNoEligibleVideos) {
		httpjson.Write(w, http.StatusOK, noVideosResponse{Added: false, Message: err.Error()})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, res)
}

func (in addContentRequest) ref() (models.ContentRef, error) {
	if in.Link == "" {
		if in.Kind == "" {
			return models.ContentRef{}, &httpjson.InvalidError{
				Message: "kind is required without a link",
				Fields:  map[string]string{"kind": "required_without"},
			}
		}
		return models.ContentRef{Kind: in.Kind, ExternalID: in.ExternalID}, nil
	}
	vid, ok := youtube.VideoIDFromLink(in.Link)
	if !ok {
		return models.ContentRef{}, &httpjson.InvalidError{
			Message: "link is not a recognizable video link",
			Fields:  map[string]string{"link": "video_link"},
		}
	}
	return models.VideoRef(vid), nil
}

// RemoveContent handles DELETE /classes/{id}/content.
func (h *Handler) RemoveContent(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in removeContentRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Content.RemoveContent(ctx, actorOf(r), id, in.ExternalID, in.AddedAt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

// ListRequests handles GET /classes/{id}/requests.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Enroll.ListPending(ctx, actorOf(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []models.ClassJoinRequest{}
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"requests": list})
}

// Approve handles POST /classes/{id}/requests/{rid}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, enrollment.Approve)
}

// Deny handles POST /classes/{id}/requests/{rid}/deny.
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, enrollment.Deny)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, decision string) {
	classID, err := httpjson.PathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reqID, err := httpjson.PathID(r, "rid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := actorOf(r)
	existing, err := h.Enroll.GetRequest(ctx, actor, reqID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if existing.ClassID != classID {
		h.fail(w, r, enrollment.ErrRequestNotFound)
		return
	}

	req, err := h.Enroll.ResolveJoinRequest(ctx, actor, reqID, decision)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, req)
}
