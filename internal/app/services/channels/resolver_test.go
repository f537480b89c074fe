package channels

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/zozokid/internal/app/system/channelcache"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/dalemusser/zozokid/internal/domain/models"
)

type fakeSource struct {
	videos   map[string]youtube.Video
	channels map[string][]youtube.Video
	skipped  map[string]int
	fail     map[string]error

	channelCalls atomic.Int32
	inflight     atomic.Int32
	maxInflight  atomic.Int32
}

func (f *fakeSource) VideoDetails(_ context.Context, id string) (youtube.Video, error) {
	if err := f.fail[id]; err != nil {
		return youtube.Video{}, err
	}
	v, ok := f.videos[id]
	if !ok {
		return youtube.Video{}, youtube.ErrNotFound
	}
	return v, nil
}

func (f *fakeSource) ShortVideosFromChannel(ctx context.Context, id string) ([]youtube.Video, youtube.ChannelReport, error) {
	f.channelCalls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		cur := f.maxInflight.Load()
		if n <= cur || f.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return nil, youtube.ChannelReport{}, ctx.Err()
	}
	if err := f.fail[id]; err != nil {
		return nil, youtube.ChannelReport{}, err
	}
	return f.channels[id], youtube.ChannelReport{SkippedBatches: f.skipped[id]}, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]channelcache.Entry
	getErr  error
}

func newMemCache() *memCache { return &memCache{entries: map[string]channelcache.Entry{}} }

func (m *memCache) Get(_ context.Context, id string) (channelcache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return channelcache.Entry{}, m.getErr
	}
	e, ok := m.entries[id]
	if !ok {
		return channelcache.Entry{}, channelcache.ErrMiss
	}
	return e, nil
}

func (m *memCache) Put(_ context.Context, id string, videos []youtube.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = channelcache.Entry{ChannelID: id, ResolvedAt: time.Now(), Videos: videos}
	return nil
}

func (m *memCache) Invalidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func chanVideos(ch string, ids ...string) []youtube.Video {
	out := make([]youtube.Video, 0, len(ids))
	for _, id := range ids {
		out = append(out, youtube.Video{ID: id, ChannelID: ch, ChannelTitle: "Title " + ch, ThumbnailURL: "thumb-" + id})
	}
	return out
}

func TestResolve_Video(t *testing.T) {
	src := &fakeSource{videos: map[string]youtube.Video{"v1": {ID: "v1", Title: "One", ThumbnailURL: "t1"}}}
	r := New(src, nil, 0, nil)

	res, err := r.Resolve(context.Background(), models.VideoRef("v1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := res.VideoIDs(); len(got) != 1 || got[0] != "v1" {
		t.Errorf("VideoIDs = %v", got)
	}
	if res.Title != "One" || res.ThumbnailURL != "t1" {
		t.Errorf("item metadata = %q %q", res.Title, res.ThumbnailURL)
	}

	if _, err := r.Resolve(context.Background(), models.VideoRef("missing")); !errors.Is(err, youtube.ErrNotFound) {
		t.Errorf("missing video err = %v, want ErrNotFound", err)
	}
}

func TestResolve_UnknownKind(t *testing.T) {
	r := New(&fakeSource{}, nil, 0, nil)
	_, err := r.Resolve(context.Background(), models.ContentRef{Kind: "playlist", ExternalID: "x"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
}

func TestResolve_ChannelUsesCache(t *testing.T) {
	src := &fakeSource{channels: map[string][]youtube.Video{"UC1": chanVideos("UC1", "a", "b")}}
	cache := newMemCache()
	r := New(src, cache, 0, nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, models.ChannelRef("UC1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Cached {
		t.Error("first resolution should not come from cache")
	}
	if first.Title != "Title UC1" {
		t.Errorf("channel title = %q", first.Title)
	}

	second, err := r.Resolve(ctx, models.ChannelRef("UC1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !second.Cached {
		t.Error("second resolution should come from cache")
	}
	if src.channelCalls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", src.channelCalls.Load())
	}

	if err := r.Invalidate(ctx, "UC1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := r.Resolve(ctx, models.ChannelRef("UC1")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src.channelCalls.Load() != 2 {
		t.Errorf("upstream calls after invalidate = %d, want 2", src.channelCalls.Load())
	}
}

func TestResolve_PartialChannelNotCached(t *testing.T) {
	src := &fakeSource{
		channels: map[string][]youtube.Video{"UC1": chanVideos("UC1", "a")},
		skipped:  map[string]int{"UC1": 1},
	}
	cache := newMemCache()
	r := New(src, cache, 0, nil)

	res, err := r.Resolve(context.Background(), models.ChannelRef("UC1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SkippedBatches != 1 {
		t.Errorf("SkippedBatches = %d, want 1", res.SkippedBatches)
	}
	if _, ok := cache.entries["UC1"]; ok {
		t.Error("partial listing must not be cached")
	}
}

func TestResolve_CacheErrorFallsThrough(t *testing.T) {
	src := &fakeSource{channels: map[string][]youtube.Video{"UC1": chanVideos("UC1", "a")}}
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	r := New(src, cache, 0, nil)

	res, err := r.Resolve(context.Background(), models.ChannelRef("UC1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Videos) != 1 {
		t.Errorf("videos = %d, want 1", len(res.Videos))
	}
}

func TestResolveMany_OrderAndLimit(t *testing.T) {
	src := &fakeSource{channels: map[string][]youtube.Video{}}
	var refs []models.ContentRef
	for _, ch := range []string{"c1", "c2", "c3", "c4", "c5", "c6"} {
		src.channels[ch] = chanVideos(ch, ch+"-v")
		refs = append(refs, models.ChannelRef(ch))
	}
	r := New(src, nil, 2, nil)

	got, err := r.ResolveMany(context.Background(), refs)
	if err != nil {
		t.Fatalf("ResolveMany: %v", err)
	}
	for i, res := range got {
		if res.Ref != refs[i] {
			t.Errorf("result %d ref = %v, want %v", i, res.Ref, refs[i])
		}
	}
	if m := src.maxInflight.Load(); m > 2 {
		t.Errorf("max in-flight = %d, want <= 2", m)
	}
}

func TestResolveMany_FailFast(t *testing.T) {
	boom := errors.New("upstream down")
	src := &fakeSource{
		channels: map[string][]youtube.Video{"ok": chanVideos("ok", "v")},
		fail:     map[string]error{"bad": boom},
	}
	r := New(src, nil, 4, nil)

	_, err := r.ResolveMany(context.Background(), []models.ContentRef{
		models.ChannelRef("ok"), models.ChannelRef("bad"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
