package classcontent

import (
	"github.com/dalemusser/zozokid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/dalemusser/zozokid/internal/domain/models"
)

// AddPlan is the write set of one content addition.
type AddPlan struct {
	Parents []string
	Entries []models.VideoQueueEntry
}

// PlanAdd builds one queue entry per distinct parent per distinct video. A
// parent with several children in the class gets each video once.
func PlanAdd(class models.Class, videos []youtube.Video) AddPlan {
	parents := class.ParentIDs()
	vids := distinctVideos(videos)
	entries := make([]models.VideoQueueEntry, 0, len(parents)*len(vids))
	for _, v := range vids {
		for _, p := range parents {
			entries = append(entries, models.VideoQueueEntry{
				ParentID:     p,
				VideoID:      v.ID,
				Title:        htmlsanitize.Text(v.Title),
				ThumbnailURL: htmlsanitize.URL(v.ThumbnailURL),
				ChannelID:    v.ChannelID,
				ChannelTitle: htmlsanitize.Text(v.ChannelTitle),
			})
		}
	}
	return AddPlan{Parents: parents, Entries: entries}
}

// RemovePlan is the delete set of one content removal: every pair in
// Parents x VideoIDs.
type RemovePlan struct {
	Parents  []string
	VideoIDs []string
}

// PlanRemove pairs the class's distinct parents with the distinct video ids.
func PlanRemove(class models.Class, videoIDs []string) RemovePlan {
	return RemovePlan{Parents: class.ParentIDs(), VideoIDs: distinctStrings(videoIDs)}
}

// Pairs is the number of queue entries the plan can delete.
func (p RemovePlan) Pairs() int { return len(p.Parents) * len(p.VideoIDs) }

func distinctVideos(videos []youtube.Video) []youtube.Video {
	seen := make(map[string]struct{}, len(videos))
	out := make([]youtube.Video, 0, len(videos))
	for _, v := range videos {
		if v.ID == "" {
			continue
		}
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}

func distinctStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
