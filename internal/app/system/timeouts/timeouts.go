// Package timeouts provides the deadlines used with context.WithTimeout for
// database work and video platform calls.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries, join request transitions
//   - Long: content fan-out (upstream resolution plus one batch commit)
//   - Batch: class teardown and background job passes
//   - Upstream: one call to the video platform API
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds timeout values. Zero values are ignored by Configure.
type Config struct {
	Ping     time.Duration
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	Batch    time.Duration
	Upstream time.Duration
}

// Defaults are the values in effect until Configure is called.
var Defaults = Config{
	Ping:     2 * time.Second,
	Short:    5 * time.Second,
	Medium:   10 * time.Second,
	Long:     45 * time.Second,
	Batch:    2 * time.Minute,
	Upstream: 15 * time.Second,
}

var (
	mu  sync.RWMutex
	cur = Defaults
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration     { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration    { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration   { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration     { return get(func(c Config) time.Duration { return c.Long }) }
func Batch() time.Duration    { return get(func(c Config) time.Duration { return c.Batch }) }
func Upstream() time.Duration { return get(func(c Config) time.Duration { return c.Upstream }) }

// Configure overrides the non-zero values in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&cur, cfg)
}

// Reset restores the defaults. Tests use it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = Defaults
}

// Current returns the timeouts in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

func merge(dst *Config, src Config) {
	set := func(d *time.Duration, v time.Duration) {
		if v > 0 {
			*d = v
		}
	}
	set(&dst.Ping, src.Ping)
	set(&dst.Short, src.Short)
	set(&dst.Medium, src.Medium)
	set(&dst.Long, src.Long)
	set(&dst.Batch, src.Batch)
	set(&dst.Upstream, src.Upstream)
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG, TIMEOUT_BATCH and TIMEOUT_UPSTREAM (Go duration strings).
// Unset or invalid values are ignored. Returns how many were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	read := func(key string, d *time.Duration) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			*d = parsed
			n++
		}
	}
	read("TIMEOUT_PING", &cfg.Ping)
	read("TIMEOUT_SHORT", &cfg.Short)
	read("TIMEOUT_MEDIUM", &cfg.Medium)
	read("TIMEOUT_LONG", &cfg.Long)
	read("TIMEOUT_BATCH", &cfg.Batch)
	read("TIMEOUT_UPSTREAM", &cfg.Upstream)
	Configure(cfg)
	return n
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "add class content")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
