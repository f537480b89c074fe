// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/zozokid/internal/app/system/channelcache"
	"github.com/dalemusser/zozokid/internal/app/system/indexes"
	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"github.com/dalemusser/zozokid/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB and, when configured, the Redis channel cache.
// A Redis failure is not fatal: the service runs uncached.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("zozokid")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	deps := DBDeps{
		ZoZoKidMongoClient:   client,
		ZoZoKidMongoDatabase: client.Database(appCfg.MongoDatabase),
	}

	if appCfg.RedisAddr == "" {
		logger.Info("channel cache disabled (no redis_addr)")
		return deps, nil
	}
	cacheCtx, cancelCache := context.WithTimeout(ctx, timeouts.Short())
	defer cancelCache()
	cache, err := channelcache.Dial(cacheCtx, channelcache.Options{
		Addr:     appCfg.RedisAddr,
		Password: appCfg.RedisPassword,
		DB:       appCfg.RedisDB,
		TTL:      appCfg.ChannelCacheTTL,
	})
	if err != nil {
		logger.Warn("channel cache unavailable; resolving channels uncached",
			zap.String("redis_addr", appCfg.RedisAddr), zap.Error(err))
		return deps, nil
	}
	deps.ChannelCache = cache
	logger.Info("channel cache connected",
		zap.String("redis_addr", appCfg.RedisAddr),
		zap.Duration("ttl", appCfg.ChannelCacheTTL))
	return deps, nil
}

// EnsureSchema creates collections with their validators and reconciles
// indexes. Both are idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.ZoZoKidMongoDatabase
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
