// Package channels turns content references into the concrete set of
// short-form videos they stand for.
package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dalemusser/zozokid/internal/app/system/channelcache"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/dalemusser/zozokid/internal/domain/models"
)

// DefaultConcurrency bounds ResolveMany when no limit is configured.
const DefaultConcurrency = 4

// ErrUnknownKind is returned for a reference that is neither a video nor a channel.
var ErrUnknownKind = errors.New("channels: unknown content kind")

// Source is the part of the video platform gateway the resolver needs.
type Source interface {
	VideoDetails(ctx context.Context, videoID string) (youtube.Video, error)
	ShortVideosFromChannel(ctx context.Context, channelID string) ([]youtube.Video, youtube.ChannelReport, error)
}

// Cache stores resolved channel membership. See channelcache.Cache.
type Cache interface {
	Get(ctx context.Context, channelID string) (channelcache.Entry, error)
	Put(ctx context.Context, channelID string, videos []youtube.Video) error
	Invalidate(ctx context.Context, channelID string) error
}

// Resolution is the outcome of resolving one reference.
type Resolution struct {
	Ref    models.ContentRef
	Videos []youtube.Video

	// Title and ThumbnailURL describe the referenced item itself: the video,
	// or for a channel its first listed video.
	Title        string
	ThumbnailURL string

	SkippedBatches int
	Cached         bool
	ResolvedAt     time.Time
}

// VideoIDs returns the ids of the resolved videos in order.
func (r Resolution) VideoIDs() []string {
	ids := make([]string, 0, len(r.Videos))
	for _, v := range r.Videos {
		ids = append(ids, v.ID)
	}
	return ids
}

// Resolver resolves references against the platform, consulting the cache
// for channels. A nil cache disables caching.
type Resolver struct {
	src         Source
	cache       Cache
	log         *zap.Logger
	concurrency int
}

// New builds a Resolver.
func New(src Source, cache Cache, concurrency int, logger *zap.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{src: src, cache: cache, log: logger, concurrency: concurrency}
}

// Resolve returns the videos a reference stands for. A video resolves to
// itself. A channel resolves to its short-form uploads.
func (r *Resolver) Resolve(ctx context.Context, ref models.ContentRef) (Resolution, error) {
	switch ref.Kind {
	case models.ContentVideo:
		v, err := r.src.VideoDetails(ctx, ref.ExternalID)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolve video %s: %w", ref.ExternalID, err)
		}
		return Resolution{
			Ref:          ref,
			Videos:       []youtube.Video{v},
			Title:        v.Title,
			ThumbnailURL: v.ThumbnailURL,
			ResolvedAt:   time.Now().UTC(),
		}, nil
	case models.ContentChannel:
		return r.resolveChannel(ctx, ref)
	default:
		return Resolution{}, ErrUnknownKind
	}
}

func (r *Resolver) resolveChannel(ctx context.Context, ref models.ContentRef) (Resolution, error) {
	id := ref.ExternalID
	if r.cache != nil {
		e, err := r.cache.Get(ctx, id)
		switch {
		case err == nil:
			return channelResolution(ref, e.Videos, 0, true, e.ResolvedAt), nil
		case !errors.Is(err, channelcache.ErrMiss):
			r.log.Warn("channel cache read failed", zap.String("channel_id", id), zap.Error(err))
		}
	}

	videos, rep, err := r.src.ShortVideosFromChannel(ctx, id)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve channel %s: %w", id, err)
	}

	// A partial listing is not cached so the next resolution retries the
	// skipped batches.
	if r.cache != nil && rep.SkippedBatches == 0 {
		if err := r.cache.Put(ctx, id, videos); err != nil {
			r.log.Warn("channel cache write failed", zap.String("channel_id", id), zap.Error(err))
		}
	}
	return channelResolution(ref, videos, rep.SkippedBatches, false, time.Now().UTC()), nil
}

func channelResolution(ref models.ContentRef, videos []youtube.Video, skipped int, cached bool, at time.Time) Resolution {
	res := Resolution{
		Ref:            ref,
		Videos:         videos,
		SkippedBatches: skipped,
		Cached:         cached,
		ResolvedAt:     at,
	}
	if len(videos) > 0 {
		res.Title = videos[0].ChannelTitle
		res.ThumbnailURL = videos[0].ThumbnailURL
	}
	return res
}

// ResolveMany resolves refs in parallel, bounded by the configured
// concurrency. Results are in input order. The first failure cancels the
// remaining work and is returned.
func (r *Resolver) ResolveMany(ctx context.Context, refs []models.ContentRef) ([]Resolution, error) {
	out := make([]Resolution, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			res, err := r.Resolve(gctx, ref)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate forgets the cached membership of a channel.
func (r *Resolver) Invalidate(ctx context.Context, channelID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, channelID)
}
