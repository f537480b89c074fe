// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/config"
	childrenfeature "github.com/dalemusser/zozokid/internal/app/features/children"
	classesfeature "github.com/dalemusser/zozokid/internal/app/features/classes"
	discoverfeature "github.com/dalemusser/zozokid/internal/app/features/discover"
	errorsfeature "github.com/dalemusser/zozokid/internal/app/features/errors"
	feedfeature "github.com/dalemusser/zozokid/internal/app/features/feed"
	healthfeature "github.com/dalemusser/zozokid/internal/app/features/health"
	joinrequestsfeature "github.com/dalemusser/zozokid/internal/app/features/joinrequests"
	preferencesfeature "github.com/dalemusser/zozokid/internal/app/features/preferences"
	sessionfeature "github.com/dalemusser/zozokid/internal/app/features/session"
	teardownjobstore "github.com/dalemusser/zozokid/internal/app/store/teardownjobs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Every route speaks JSON. The actor middleware runs
// globally; each feature router enforces the roles it serves.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if running == nil {
		return nil, errors.New("bootstrap: BuildHandler called before Startup")
	}
	return newRouter(running, deps, logger), nil
}

func newRouter(s *services, deps DBDeps, logger *zap.Logger) chi.Router {
	db := deps.ZoZoKidMongoDatabase
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators.
	// A nil *channelcache.Cache must stay a nil interface.
	var cache healthfeature.Pinger
	if deps.ChannelCache != nil {
		cache = deps.ChannelCache
	}
	healthHandler := healthfeature.NewHandler(deps.ZoZoKidMongoClient, cache, teardownjobstore.New(db), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Group(func(r chi.Router) {
		// Attaches the actor from a bearer token or the session cookie.
		r.Use(s.sessions.LoadActor)

		sessionHandler := sessionfeature.NewHandler(s.sessions, logger)
		r.Mount("/session", sessionfeature.Routes(sessionHandler))

		// Teachers
		classesHandler := classesfeature.NewHandler(s.content, s.enroll, s.teardown, logger)
		r.Mount("/classes", classesfeature.Routes(classesHandler))

		// Parents
		joinHandler := joinrequestsfeature.NewHandler(s.enroll, logger)
		r.Mount("/join-requests", joinrequestsfeature.Routes(joinHandler, s.joinLimiter))

		childrenHandler := childrenfeature.NewHandler(db, s.enroll, logger)
		r.Mount("/children", childrenfeature.Routes(childrenHandler))

		feedHandler := feedfeature.NewHandler(db, s.gateway, s.resolver, logger)
		r.Mount("/queue", feedfeature.Routes(feedHandler))

		preferencesHandler := preferencesfeature.NewHandler(db, logger)
		r.Mount("/preferences", preferencesfeature.Routes(preferencesHandler))

		// Both roles
		discoverHandler := discoverfeature.NewHandler(s.gateway, s.resolver, logger)
		r.Mount("/discover", discoverfeature.Routes(discoverHandler, s.discoverLimiter))
	})

	return r
}
