// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/zozokid/internal/app/system/channelcache"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	ZoZoKidMongoClient   *mongo.Client
	ZoZoKidMongoDatabase *mongo.Database

	// ChannelCache is nil when no Redis address is configured.
	ChannelCache *channelcache.Cache
}
