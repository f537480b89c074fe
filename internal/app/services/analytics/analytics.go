// Package analytics summarizes a child's watch history for the parent.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/dalemusser/zozokid/internal/domain/models"
)

const (
	// Days is the length of the daily watch-time window, today included.
	Days = 7

	// RecentLimit is how many recent events a summary carries.
	RecentLimit = 5

	// NoFavorite is reported when no event names a channel.
	NoFavorite = "N/A"
)

// Day is the watch time for one calendar day.
type Day struct {
	Date    string `json:"date"`  // YYYY-MM-DD in the summary's location
	Label   string `json:"label"` // short weekday, e.g. "Mon"
	Minutes int    `json:"minutes"`
}

// Summary is the parent-facing view of a child's activity.
type Summary struct {
	TotalWatchSeconds int                 `json:"total_watch_seconds"`
	VideosWatched     int                 `json:"videos_watched"`
	FavoriteChannel   string              `json:"favorite_channel"`
	Daily             []Day               `json:"daily"`
	Recent            []models.WatchEvent `json:"recent"`
}

// Summarize computes totals over every event, the favorite channel by summed
// watch time, per-day minutes for the last Days days (oldest first, each
// event rounded to whole minutes before summing) and the most recent events.
// Ties for favorite channel go to the alphabetically first title.
func Summarize(events []models.WatchEvent, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	s := Summary{
		FavoriteChannel: NoFavorite,
		Daily:           emptyDays(now, loc),
		Recent:          []models.WatchEvent{},
	}

	index := make(map[string]int, Days)
	for i, d := range s.Daily {
		index[d.Date] = i
	}

	byChannel := map[string]int{}
	for _, e := range events {
		s.TotalWatchSeconds += e.WatchDurationSeconds
		s.VideosWatched++
		if e.ChannelTitle != "" {
			byChannel[e.ChannelTitle] += e.WatchDurationSeconds
		}
		if i, ok := index[e.WatchedAt.In(loc).Format(time.DateOnly)]; ok {
			s.Daily[i].Minutes += int(math.Round(float64(e.WatchDurationSeconds) / 60))
		}
	}
	s.FavoriteChannel = favorite(byChannel)

	recent := append([]models.WatchEvent(nil), events...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].WatchedAt.After(recent[j].WatchedAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	s.Recent = append(s.Recent, recent...)
	return s
}

// Since returns the start of the daily window: midnight, Days-1 days before now.
func Since(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()-(Days-1), 0, 0, 0, 0, loc)
}

func emptyDays(now time.Time, loc *time.Location) []Day {
	start := Since(now, loc)
	out := make([]Day, 0, Days)
	for i := 0; i < Days; i++ {
		d := start.AddDate(0, 0, i)
		out = append(out, Day{Date: d.Format(time.DateOnly), Label: d.Format("Mon")})
	}
	return out
}

func favorite(byChannel map[string]int) string {
	best, bestSecs := NoFavorite, -1
	for title, secs := range byChannel {
		if secs > bestSecs || (secs == bestSecs && title < best) {
			best, bestSecs = title, secs
		}
	}
	return best
}
