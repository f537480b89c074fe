// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/zozokid/internal/app/services/channels"
	"github.com/dalemusser/zozokid/internal/app/services/classcontent"
	"github.com/dalemusser/zozokid/internal/app/services/classteardown"
	"github.com/dalemusser/zozokid/internal/app/services/enrollment"
	"github.com/dalemusser/zozokid/internal/app/system/auth"
	"github.com/dalemusser/zozokid/internal/app/system/ratelimit"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/app/system/workers"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"go.uber.org/zap"
)

// services holds what Startup builds once and BuildHandler and Shutdown use.
type services struct {
	gateway  *youtube.Gateway
	resolver *channels.Resolver
	content  *classcontent.Engine
	enroll   *enrollment.Service
	teardown *classteardown.Service
	sessions *auth.SessionManager
	worker   *workers.TeardownWorker

	discoverLimiter *ratelimit.Limiter // nil when disabled
	joinLimiter     *ratelimit.Limiter // nil when disabled
}

// running is set by Startup.
var running *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the video platform gateway and the services, then starts the worker that
// resumes interrupted class deletions.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	s, err := buildServices(ctx, coreCfg, appCfg, deps, logger)
	if err != nil {
		return err
	}
	s.worker = workers.NewTeardownWorker(s.teardown, logger, appCfg.TeardownInterval)
	s.worker.Start()
	running = s
	return nil
}

func buildServices(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	gw, err := youtube.New(ctx, youtube.Config{
		APIKey:  appCfg.YouTubeAPIKey,
		BaseURL: appCfg.YouTubeBaseURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("youtube gateway: %w", err)
	}

	// A nil *channelcache.Cache must stay a nil interface.
	var cache channels.Cache
	if deps.ChannelCache != nil {
		cache = deps.ChannelCache
	}
	resolver := channels.New(gw, cache, appCfg.ChannelResolveConcurrency, logger)

	secure := coreCfg != nil && coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.ActorHashKey, appCfg.ActorBlockKey,
		appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.ZoZoKidMongoDatabase
	s := &services{
		gateway:  gw,
		resolver: resolver,
		content:  classcontent.New(db, resolver, logger),
		enroll:   enrollment.New(db, enrollment.Options{RevokeGrantOnDeny: appCfg.RevokeGrantOnDeny}, logger),
		teardown: classteardown.New(db, resolver, classteardown.Options{
			Lease:       appCfg.TeardownStaleAfter,
			MaxAttempts: appCfg.TeardownMaxAttempts,
		}, logger),
		sessions: sessionMgr,
	}
	if appCfg.DiscoverPerWindow > 0 {
		s.discoverLimiter = ratelimit.New(appCfg.DiscoverPerWindow, appCfg.RateLimitWindow)
	}
	if appCfg.JoinPerWindow > 0 {
		s.joinLimiter = ratelimit.New(appCfg.JoinPerWindow, appCfg.RateLimitWindow)
	}
	return s, nil
}
