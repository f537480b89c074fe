// internal/app/features/session/handler.go
package session

import (
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	"github.com/dalemusser/zozokid/internal/app/system/auth"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
	}
}

type startRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
	Role          string `json:"role,omitempty"`
}

// Show handles GET /session and reports who the caller is.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.ActorCtx(r)
	if !ok {
		httpjson.Write(w, http.StatusOK, sessionResponse{})
		return
	}
	httpjson.Write(w, http.StatusOK, sessionResponse{Authenticated: true, ID: a.ID, Role: a.Role})
}

// Start handles POST /session. The player exchanges the actor token it was
// launched with for a session cookie.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var in startRequest
	if err := httpjson.Decode(w, r, &in); err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	a, err := h.SessionMgr.ParseToken(in.Token)
	if errors.Is(err, auth.ErrInvalidToken) {
		errorsfeature.Write(w, r, h.Log, authz.ErrUnauthenticated)
		return
	}
	if err != nil {
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	if err := h.SessionMgr.StartSession(w, r, a); err != nil {
		h.Log.Error("session: save", zap.Error(err))
		errorsfeature.Write(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, sessionResponse{Authenticated: true, ID: a.ID, Role: a.Role})
}

// End handles DELETE /session.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.EndSession(w, r); err != nil {
		h.Log.Error("session: clear", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
