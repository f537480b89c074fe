// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/zozokid/internal/app/services/classteardown"
	"github.com/dalemusser/zozokid/internal/app/system/channelcache"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ZoZoKid.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, youtube_api_key, etc.
//   - Environment variables: ZOZOKID_MONGO_URI, ZOZOKID_YOUTUBE_API_KEY, etc.
//   - Command-line flags: --mongo_uri, --youtube_api_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "zozokid", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Video platform
	{Name: "youtube_api_key", Default: "", Desc: "YouTube Data API key (required)"},
	{Name: "youtube_base_url", Default: "", Desc: "YouTube Data API endpoint override"},

	// Channel cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the channel cache (blank disables it)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "channel_cache_ttl", Default: "6h", Desc: "How long a resolved channel stays cached"},
	{Name: "channel_resolve_concurrency", Default: 4, Desc: "Channels resolved in parallel"},

	// Actor identity
	{Name: "actor_hash_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Actor token signing key (must be strong in production)"},
	{Name: "actor_block_key", Default: "", Desc: "Actor token encryption key (16, 24 or 32 bytes; optional)"},
	{Name: "session_name", Default: "zozokid-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Lifetime of actor tokens and session cookies"},

	// Enrollment
	{Name: "revoke_grant_on_deny", Default: false, Desc: "Revoke the teacher's profile access when a request is denied"},

	// Class teardown
	{Name: "teardown_interval", Default: "1m", Desc: "How often interrupted class deletions are resumed"},
	{Name: "teardown_stale_after", Default: "2m", Desc: "Lease on a claimed class deletion job"},
	{Name: "teardown_max_attempts", Default: classteardown.DefaultMaxAttempts, Desc: "Attempts before a class deletion job is marked failed"},

	// Rate limits
	{Name: "rate_limit_window", Default: "1m", Desc: "Rate limit window"},
	{Name: "discover_per_window", Default: 30, Desc: "Searches per actor per window (0 disables)"},
	{Name: "join_per_window", Default: 10, Desc: "Join requests per actor per window (0 disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, ZOZOKID_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ZOZOKID", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		YouTubeAPIKey:  strings.TrimSpace(appValues.String("youtube_api_key")),
		YouTubeBaseURL: appValues.String("youtube_base_url"),

		RedisAddr:                 appValues.String("redis_addr"),
		RedisPassword:             appValues.String("redis_password"),
		RedisDB:                   appValues.Int("redis_db"),
		ChannelCacheTTL:           appValues.Duration("channel_cache_ttl", channelcache.DefaultTTL),
		ChannelResolveConcurrency: appValues.Int("channel_resolve_concurrency"),

		ActorHashKey:  appValues.String("actor_hash_key"),
		ActorBlockKey: appValues.String("actor_block_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		RevokeGrantOnDeny: appValues.Bool("revoke_grant_on_deny"),

		TeardownInterval:    appValues.Duration("teardown_interval", time.Minute),
		TeardownStaleAfter:  appValues.Duration("teardown_stale_after", classteardown.DefaultLease),
		TeardownMaxAttempts: appValues.Int("teardown_max_attempts"),

		RateLimitWindow:   appValues.Duration("rate_limit_window", time.Minute),
		DiscoverPerWindow: appValues.Int("discover_per_window"),
		JoinPerWindow:     appValues.Int("join_per_window"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// A missing video platform key is fatal here rather than on the first
// content addition.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.YouTubeAPIKey == "" {
		return fmt.Errorf("youtube_api_key is required")
	}
	if len(appCfg.ActorHashKey) < 32 {
		return fmt.Errorf("actor_hash_key must be at least 32 bytes")
	}
	switch len(appCfg.ActorBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("actor_block_key must be 16, 24 or 32 bytes")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.ActorHashKey, "dev-only") {
		return fmt.Errorf("actor_hash_key must be changed from the development default in prod")
	}
	if appCfg.TeardownInterval <= 0 {
		return fmt.Errorf("teardown_interval must be positive")
	}
	return nil
}
