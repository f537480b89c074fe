package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is an optional dependency checked alongside the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobCounter reports how many class teardowns are still in flight.
type JobCounter interface {
	CountOpen(ctx context.Context) (int64, error)
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Cache  Pinger // nil when no channel cache is configured
	Jobs   JobCounter
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. cache and jobs may be nil.
func NewHandler(client *mongo.Client, cache Pinger, jobs JobCounter, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Cache:  cache,
		Jobs:   jobs,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
	OpenJobs *int64 `json:"teardown_jobs_open,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "cache":"connected", "teardown_jobs_open":0 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// A cache failure is reported as "degraded" with a 200; the resolver falls
// back to the upstream API without it.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Cache != nil {
		resp.Cache = "connected"
		if err := h.Cache.Ping(ctx); err != nil {
			h.Log.Warn("health-check: cache ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Cache = "disconnected"
			resp.Error = err.Error()
		}
	}

	if h.Jobs != nil {
		if n, err := h.Jobs.CountOpen(ctx); err != nil {
			h.Log.Warn("health-check: count teardown jobs failed", zap.Error(err))
		} else {
			resp.OpenJobs = &n
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
