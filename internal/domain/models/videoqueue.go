// internal/domain/models/videoqueue.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoQueueEntry marks a video as playable by every child of a parent.
// Exactly one document exists per (parent_id, video_id); writers upsert.
type VideoQueueEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ParentID     string             `bson:"parent_id" json:"parent_id"`
	VideoID      string             `bson:"video_id" json:"video_id"`
	Title        string             `bson:"title" json:"title"`
	ThumbnailURL string             `bson:"thumbnail_url" json:"thumbnail_url"`
	ChannelID    string             `bson:"channel_id" json:"channel_id"`
	ChannelTitle string             `bson:"channel_title" json:"channel_title"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
