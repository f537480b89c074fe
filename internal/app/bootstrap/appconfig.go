// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Video platform
	YouTubeAPIKey  string // YouTube Data API key (required)
	YouTubeBaseURL string // Endpoint override for proxies and tests; blank uses Google's

	// Channel membership cache (Redis). A blank address disables caching.
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	ChannelCacheTTL           time.Duration
	ChannelResolveConcurrency int // channels expanded in parallel during teardown

	// Actor identity: tokens and the player's session cookie
	ActorHashKey  string // signs actor tokens and cookies (>= 32 bytes)
	ActorBlockKey string // optional encryption key (16, 24 or 32 bytes)
	SessionName   string
	SessionDomain string // blank means current host
	SessionMaxAge time.Duration

	// Enrollment
	RevokeGrantOnDeny bool // drop the teacher's access to the profile on denial

	// Class teardown
	TeardownInterval    time.Duration // how often interrupted teardowns are resumed
	TeardownStaleAfter  time.Duration // lease on a claimed teardown job
	TeardownMaxAttempts int

	// Rate limits, per actor per window
	RateLimitWindow   time.Duration
	DiscoverPerWindow int
	JoinPerWindow     int
}
