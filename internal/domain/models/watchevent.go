// internal/domain/models/watchevent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WatchEvent is emitted by the player each time a child finishes (or leaves)
// a video.
type WatchEvent struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ParentID             string             `bson:"parent_id" json:"parent_id"`
	ChildProfileID       primitive.ObjectID `bson:"child_profile_id" json:"child_profile_id"`
	VideoID              string             `bson:"video_id" json:"video_id"`
	ChannelID            string             `bson:"channel_id" json:"channel_id"`
	ChannelTitle         string             `bson:"channel_title" json:"channel_title"`
	VideoTitle           string             `bson:"video_title" json:"video_title"`
	VideoThumbnailURL    string             `bson:"video_thumbnail_url" json:"video_thumbnail_url"`
	VideoURL             string             `bson:"video_url" json:"video_url"`
	WatchDurationSeconds int                `bson:"watch_duration_seconds" json:"watch_duration_seconds"`
	WatchedAt            time.Time          `bson:"watched_at" json:"watched_at"`
}
