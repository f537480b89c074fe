package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeVideo struct {
	Title    string
	Duration string
	Channel  string
}

// fakePlatform serves the subset of the Data API the gateway calls.
type fakePlatform struct {
	mu        sync.Mutex
	channels  map[string]string   // channel id -> uploads playlist id
	playlists map[string][]string // uploads id -> video ids
	videos    map[string]fakeVideo

	failPage      int             // 1-based playlist page that fails; 0 = never
	failBatchWith map[string]bool // a videos.list batch containing any of these ids fails
	searchItems   []map[string]any

	videoCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels:      map[string]string{},
		playlists:     map[string][]string{},
		videos:        map[string]fakeVideo{},
		failBatchWith: map[string]bool{},
	}
}

func (f *fakePlatform) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/channels", f.handleChannels)
	mux.HandleFunc("/youtube/v3/playlistItems", f.handlePlaylistItems)
	mux.HandleFunc("/youtube/v3/videos", f.handleVideos)
	mux.HandleFunc("/youtube/v3/search", f.handleSearch)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakePlatform) gateway(t *testing.T) *Gateway {
	t.Helper()
	srv := f.server(t)
	g, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func ids(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["id"] {
		for _, id := range strings.Split(v, ",") {
			if id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}

func (f *fakePlatform) handleChannels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []map[string]any{}
	for _, id := range ids(r) {
		uploads, ok := f.channels[id]
		if !ok {
			continue
		}
		items = append(items, map[string]any{
			"id": id,
			"contentDetails": map[string]any{
				"relatedPlaylists": map[string]any{"uploads": uploads},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *fakePlatform) handlePlaylistItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := r.URL.Query()
	all := f.playlists[q.Get("playlistId")]
	size, _ := strconv.Atoi(q.Get("maxResults"))
	if size <= 0 {
		size = 5
	}
	start, _ := strconv.Atoi(q.Get("pageToken"))
	page := start/size + 1
	if f.failPage != 0 && page == f.failPage {
		writeAPIError(w, http.StatusForbidden, "backend error")
		return
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	items := []map[string]any{}
	for _, id := range all[start:end] {
		items = append(items, map[string]any{
			"contentDetails": map[string]any{"videoId": id},
		})
	}
	resp := map[string]any{"items": items}
	if end < len(all) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *fakePlatform) handleVideos(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls++
	req := ids(r)
	for _, id := range req {
		if f.failBatchWith[id] {
			writeAPIError(w, http.StatusForbidden, "batch failure")
			return
		}
	}
	if len(req) == 1 && req[0] == "forbidden" {
		writeAPIError(w, http.StatusForbidden, "quota exceeded")
		return
	}
	items := []map[string]any{}
	for _, id := range req {
		v, ok := f.videos[id]
		if !ok {
			continue
		}
		items = append(items, map[string]any{
			"id":             id,
			"contentDetails": map[string]any{"duration": v.Duration},
			"snippet": map[string]any{
				"title":        v.Title,
				"channelId":    v.Channel,
				"channelTitle": "Channel " + v.Channel,
				"thumbnails": map[string]any{
					"default": map[string]any{"url": "https://img/" + id},
				},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (f *fakePlatform) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Query().Get("q") == "" {
		writeAPIError(w, http.StatusBadRequest, "missing query")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": f.searchItems})
}
