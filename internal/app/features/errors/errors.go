// internal/app/features/errors/errors.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/zozokid/internal/app/services/classcontent"
	"github.com/dalemusser/zozokid/internal/app/services/classteardown"
	"github.com/dalemusser/zozokid/internal/app/services/enrollment"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type mapping struct {
	err    error
	status int
	code   string
}

// Ordered; the first match wins.
var table = []mapping{
	{authz.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{authz.ErrForbidden, http.StatusForbidden, "forbidden"},

	{classcontent.ErrClassNotFound, http.StatusNotFound, "class_not_found"},
	{enrollment.ErrClassNotFound, http.StatusNotFound, "class_not_found"},
	{classteardown.ErrClassNotFound, http.StatusNotFound, "class_not_found"},
	{classcontent.ErrContentNotFound, http.StatusNotFound, "content_not_found"},
	{enrollment.ErrProfileNotFound, http.StatusNotFound, "profile_not_found"},
	{enrollment.ErrRequestNotFound, http.StatusNotFound, "request_not_found"},
	{youtube.ErrNotFound, http.StatusNotFound, "not_found_upstream"},
	{mongo.ErrNoDocuments, http.StatusNotFound, "not_found"},

	{classcontent.ErrNoStudents, http.StatusConflict, "no_students"},
	{classcontent.ErrClassDeleting, http.StatusConflict, "class_deleting"},
	{classteardown.ErrAlreadyDeleting, http.StatusConflict, "class_deleting"},
	{enrollment.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{enrollment.ErrAlreadyEnrolled, http.StatusConflict, "already_enrolled"},
	{enrollment.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},

	{classcontent.ErrNoEligibleVideos, http.StatusUnprocessableEntity, "no_eligible_videos"},
	{classcontent.ErrInvalidName, http.StatusUnprocessableEntity, "invalid_name"},
	{enrollment.ErrInvalidDecision, http.StatusUnprocessableEntity, "invalid_decision"},

	{youtube.ErrMissingAPIKey, http.StatusInternalServerError, "configuration_error"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	var ie *httpjson.InvalidError
	if errors.As(err, &ie) {
		return http.StatusBadRequest, "invalid_request"
	}
	for _, m := range table {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	var ue *youtube.UpstreamError
	if errors.As(err, &ue) {
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// Write sends the JSON error response for err. Server-side failures are
// logged with the request path; their detail is not sent to the client.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var ie *httpjson.InvalidError
	if errors.As(err, &ie) {
		httpjson.WriteInvalid(w, ie)
		return
	}

	status, code := Status(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		msg = "something went wrong"
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	httpjson.Error(w, status, code, msg)
}

// Handler serves JSON bodies for unrouted requests.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers requests for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.Error(w, http.StatusNotFound, "not_found", "no such endpoint")
}

// MethodNotAllowed answers requests with an unsupported method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
