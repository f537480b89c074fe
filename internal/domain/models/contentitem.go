// internal/domain/models/contentitem.go
package models

import "time"

// Content item types.
const (
	ContentVideo   = "video"
	ContentChannel = "channel"
)

// ContentItem is one entry of a class's content ledger.
//
// Identity is (ExternalID, AddedAt): the same video or channel added twice is
// two entries. AddedAt is stored with millisecond precision (see StampAddedAt)
// so the value read back from MongoDB compares equal to the value written.
//
// VideoIDs is the set of videos the entry fanned out to when it was added.
// Removal and class teardown delete exactly this set. Entries written before
// snapshots existed have no VideoIDs and are re-resolved on removal.
type ContentItem struct {
	Type         string    `bson:"type" json:"type"`
	ExternalID   string    `bson:"external_id" json:"external_id"`
	Title        string    `bson:"title" json:"title"`
	ThumbnailURL string    `bson:"thumbnail_url" json:"thumbnail_url"`
	AddedAt      time.Time `bson:"added_at" json:"added_at"`
	VideoIDs     []string  `bson:"video_ids,omitempty" json:"video_ids,omitempty"`
}

// Matches reports whether the item has the given identity.
func (it ContentItem) Matches(externalID string, addedAt time.Time) bool {
	return it.ExternalID == externalID && it.AddedAt.Equal(StampAddedAt(addedAt))
}

// HasSnapshot reports whether the resolved video set was recorded at add time.
func (it ContentItem) HasSnapshot() bool { return it.VideoIDs != nil }

// StampAddedAt normalizes a timestamp to the precision BSON dates keep.
func StampAddedAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// ContentRef names a channel or a single video on the video platform.
// It is the input to a content addition; it never changes once built.
type ContentRef struct {
	Kind       string `json:"kind"`
	ExternalID string `json:"external_id"`
}

// VideoRef builds a reference to a single video.
func VideoRef(id string) ContentRef { return ContentRef{Kind: ContentVideo, ExternalID: id} }

// ChannelRef builds a reference to a channel.
func ChannelRef(id string) ContentRef { return ContentRef{Kind: ContentChannel, ExternalID: id} }

// IsChannel reports whether the reference names a channel.
func (r ContentRef) IsChannel() bool { return r.Kind == ContentChannel }
