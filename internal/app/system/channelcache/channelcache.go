// Package channelcache keeps the resolved short-video set of a channel in
// Redis so repeated additions of the same channel skip the upstream listing.
package channelcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dalemusser/zozokid/internal/app/system/youtube"
)

const keyPrefix = "zozokid:channel:"

// DefaultTTL applies when Options.TTL is zero.
const DefaultTTL = 6 * time.Hour

// ErrMiss is returned by Get when the channel has no live entry.
var ErrMiss = errors.New("channelcache: miss")

// Entry is the cached membership of one channel.
type Entry struct {
	ChannelID  string          `json:"channel_id"`
	ResolvedAt time.Time       `json:"resolved_at"`
	Videos     []youtube.Video `json:"videos"`
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache is a Redis-backed channel membership cache.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// Dial connects to Redis and verifies the connection with a ping.
func Dial(ctx context.Context, opts Options) (*Cache, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("channelcache: redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, opts.TTL), nil
}

// New wraps an existing client.
func New(rdb *goredis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(channelID string) string { return keyPrefix + channelID }

// Get returns the cached entry for channelID or ErrMiss.
func (c *Cache) Get(ctx context.Context, channelID string) (Entry, error) {
	raw, err := c.rdb.Get(ctx, key(channelID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A value we cannot decode is treated as absent.
		_ = c.rdb.Del(ctx, key(channelID)).Err()
		return Entry{}, ErrMiss
	}
	return e, nil
}

// Put stores the channel's videos with the configured TTL.
func (c *Cache) Put(ctx context.Context, channelID string, videos []youtube.Video) error {
	if videos == nil {
		videos = []youtube.Video{}
	}
	raw, err := json.Marshal(Entry{
		ChannelID:  channelID,
		ResolvedAt: time.Now().UTC(),
		Videos:     videos,
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(channelID), raw, c.ttl).Err()
}

// Invalidate drops the entry for channelID.
func (c *Cache) Invalidate(ctx context.Context, channelID string) error {
	return c.rdb.Del(ctx, key(channelID)).Err()
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *Cache) Close() error { return c.rdb.Close() }
