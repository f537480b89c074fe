// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/zozokid/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Shutdown stops the background worker and limiter sweepers, then tears down the cache and DB
// connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if running != nil && running.worker != nil {
		logger.Info("stopping teardown worker")
		running.worker.Stop()
	}
	if running != nil {
		for _, l := range []*ratelimit.Limiter{running.discoverLimiter, running.joinLimiter} {
			if l != nil {
				l.Stop()
			}
		}
	}
	if deps.ChannelCache != nil {
		if err := deps.ChannelCache.Close(); err != nil {
			logger.Warn("channel cache close failed", zap.Error(err))
		}
	}
	if deps.ZoZoKidMongoClient != nil {
		logger.Info("disconnecting ZoZoKid MongoDB client")
		if err := deps.ZoZoKidMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
