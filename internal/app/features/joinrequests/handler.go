// internal/app/features/joinrequests/handler.go
package joinrequests

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	"github.com/dalemusser/zozokid/internal/app/services/enrollment"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the parent's side of class enrollment.
type Handler struct {
	Enroll *enrollment.Service
	Log    *zap.Logger
}

// NewHandler constructs a join-requests Handler.
func NewHandler(enroll *enrollment.Service, logger *zap.Logger) *Handler {
	return &Handler{Enroll: enroll, Log: logger}
}

type createRequest struct {
	ClassCode      string `json:"class_code" validate:"required,hexadecimal,len=24"`
	ChildProfileID string `json:"child_profile_id" validate:"required,hexadecimal,len=24"`
}

// Create handles POST /join-requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	childID, err := primitive.ObjectIDFromHex(in.ChildProfileID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, &httpjson.InvalidError{
			Message: "child_profile_id is not a valid id",
			Fields:  map[string]string{"child_profile_id": "objectid"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	req, err := h.Enroll.CreateJoinRequest(ctx, actor, in.ClassCode, childID)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, req)
}

// Get handles GET /join-requests/{id} so a parent can follow a request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpjson.PathID(r, "id")
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, _ := authz.ActorCtx(r)
	req, err := h.Enroll.GetRequest(ctx, actor, id)
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, req)
}
