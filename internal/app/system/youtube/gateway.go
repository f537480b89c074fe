// Package youtube is the gateway to the YouTube Data API v3. It resolves
// channels to their uploads, pages through upload playlists, fetches video
// metadata and durations, and runs discovery searches.
//
// Failure policy:
//   - ListAllVideoIDs fails the whole call on any page error.
//   - FilterShortVideos skips (and counts) a batch whose metadata fetch fails.
package youtube

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

const (
	pageSize        = 50 // playlistItems maxResults and videos batch size
	searchMaxResult = 25

	kindChannel = "youtube#channel"
	kindVideo   = "youtube#video"
)

// Config configures a Gateway.
type Config struct {
	APIKey  string
	BaseURL string // optional endpoint override, e.g. a proxy or test server
}

// Video is the metadata kept for a short-form video.
type Video struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ThumbnailURL    string `json:"thumbnail_url"`
	ChannelID       string `json:"channel_id"`
	ChannelTitle    string `json:"channel_title"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// ChannelResult is a channel returned by Search.
type ChannelResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// VideoResult is a video returned by Search.
type VideoResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
}

// SearchResult partitions search hits by kind.
type SearchResult struct {
	Channels []ChannelResult `json:"channels"`
	Videos   []VideoResult   `json:"videos"`
}

// ChannelReport describes one channel expansion.
type ChannelReport struct {
	UploadsID      string
	Listed         int // ids found in the uploads playlist
	SkippedBatches int // metadata batches dropped after a fetch failure
}

// Gateway wraps a YouTube Data API service.
type Gateway struct {
	svc *ytapi.Service
	log *zap.Logger
}

// New builds a Gateway. It returns ErrMissingAPIKey when no key is set.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithEndpoint(base))
	}
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{svc: svc, log: logger}, nil
}

// ResolveUploadsSource returns the id of the channel's uploads playlist.
func (g *Gateway) ResolveUploadsSource(ctx context.Context, channelID string) (string, error) {
	resp, err := g.svc.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return "", upstream("channels.list", err)
	}
	if len(resp.Items) == 0 {
		return "", ErrNotFound
	}
	cd := resp.Items[0].ContentDetails
	if cd == nil || cd.RelatedPlaylists == nil || cd.RelatedPlaylists.Uploads == "" {
		return "", ErrNotFound
	}
	return cd.RelatedPlaylists.Uploads, nil
}

// ListAllVideoIDs pages through an uploads playlist, 50 items per page, in
// the order the platform returns them. Any page failure fails the call.
func (g *Gateway) ListAllVideoIDs(ctx context.Context, uploadsID string) ([]string, error) {
	var ids []string
	token := ""
	for {
		call := g.svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(uploadsID).
			MaxResults(pageSize).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, upstream("playlistItems.list", err)
		}
		for _, it := range resp.Items {
			if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
				ids = append(ids, it.ContentDetails.VideoId)
			}
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		token = resp.NextPageToken
	}
}

// FilterShortVideos fetches metadata for ids in batches of 50 and keeps the
// videos shorter than ShortVideoLimit. A batch whose fetch fails is logged,
// counted in skipped, and left out. The only error returned is the
// context's, when it ends before every batch was attempted.
func (g *Gateway) FilterShortVideos(ctx context.Context, ids []string) (videos []Video, skipped int, err error) {
	for start := 0; start < len(ids); start += pageSize {
		if err := ctx.Err(); err != nil {
			return videos, skipped, err
		}
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		resp, err := g.svc.Videos.List([]string{"contentDetails", "snippet"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			skipped++
			g.log.Warn("video metadata batch failed; skipping",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(upstream("videos.list", err)))
			continue
		}
		for _, v := range resp.Items {
			if v.ContentDetails == nil {
				continue
			}
			secs := ParseDuration(v.ContentDetails.Duration)
			if !IsShort(secs) {
				continue
			}
			out := videoFrom(v)
			out.DurationSeconds = secs
			videos = append(videos, out)
		}
	}
	return videos, skipped, nil
}

// ShortVideosFromChannel resolves a channel's uploads and returns its
// short-form videos.
func (g *Gateway) ShortVideosFromChannel(ctx context.Context, channelID string) ([]Video, ChannelReport, error) {
	var rep ChannelReport
	uploads, err := g.ResolveUploadsSource(ctx, channelID)
	if err != nil {
		return nil, rep, err
	}
	rep.UploadsID = uploads

	ids, err := g.ListAllVideoIDs(ctx, uploads)
	if err != nil {
		return nil, rep, err
	}
	rep.Listed = len(ids)

	videos, skipped, err := g.FilterShortVideos(ctx, ids)
	rep.SkippedBatches = skipped
	if err != nil {
		return nil, rep, err
	}
	if skipped > 0 {
		g.log.Warn("channel expanded with skipped batches",
			zap.String("channel_id", channelID),
			zap.Int("listed", rep.Listed),
			zap.Int("skipped_batches", skipped))
	}
	return videos, rep, nil
}

// VideoDetails fetches one video's metadata.
func (g *Gateway) VideoDetails(ctx context.Context, videoID string) (Video, error) {
	resp, err := g.svc.Videos.List([]string{"snippet"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return Video{}, upstream("videos.list", err)
	}
	if len(resp.Items) == 0 {
		return Video{}, ErrNotFound
	}
	return videoFrom(resp.Items[0]), nil
}

// Search runs a single-page discovery query over videos and channels.
func (g *Gateway) Search(ctx context.Context, query string) (SearchResult, error) {
	resp, err := g.svc.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(searchMaxResult).
		Type("video", "channel").
		Context(ctx).
		Do()
	if err != nil {
		return SearchResult{}, upstream("search.list", err)
	}

	out := SearchResult{Channels: []ChannelResult{}, Videos: []VideoResult{}}
	for _, it := range resp.Items {
		if it.Id == nil || it.Snippet == nil {
			continue
		}
		sn := it.Snippet
		switch it.Id.Kind {
		case kindChannel:
			out.Channels = append(out.Channels, ChannelResult{
				ID:           it.Id.ChannelId,
				Title:        sn.Title,
				Description:  sn.Description,
				ThumbnailURL: defaultThumb(sn.Thumbnails),
			})
		case kindVideo:
			out.Videos = append(out.Videos, VideoResult{
				ID:           it.Id.VideoId,
				Title:        sn.Title,
				Description:  sn.Description,
				ThumbnailURL: defaultThumb(sn.Thumbnails),
				ChannelID:    sn.ChannelId,
				ChannelTitle: sn.ChannelTitle,
			})
		}
	}
	return out, nil
}

func videoFrom(v *ytapi.Video) Video {
	out := Video{ID: v.Id}
	if sn := v.Snippet; sn != nil {
		out.Title = sn.Title
		out.ThumbnailURL = defaultThumb(sn.Thumbnails)
		out.ChannelID = sn.ChannelId
		out.ChannelTitle = sn.ChannelTitle
	}
	return out
}

func defaultThumb(t *ytapi.ThumbnailDetails) string {
	if t == nil || t.Default == nil {
		return ""
	}
	return t.Default.Url
}
