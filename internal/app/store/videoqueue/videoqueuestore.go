// internal/app/store/videoqueue/videoqueuestore.go
package videoqueuestore

import (
	"context"
	"time"

	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("video_queue")}
}

// UpsertResult counts the outcome of an upsert batch.
type UpsertResult struct {
	Inserted int64
	Updated  int64
}

func upsertModel(e models.VideoQueueEntry, now time.Time) mongo.WriteModel {
	return mongo.NewUpdateOneModel().
		SetFilter(bson.M{"parent_id": e.ParentID, "video_id": e.VideoID}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"title":         e.Title,
				"thumbnail_url": e.ThumbnailURL,
				"channel_id":    e.ChannelID,
				"channel_title": e.ChannelTitle,
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		}).
		SetUpsert(true)
}

// Upsert writes one entry keyed by (parent_id, video_id). Metadata is
// refreshed when the entry already exists.
func (s *Store) Upsert(ctx context.Context, e models.VideoQueueEntry) error {
	_, err := s.UpsertMany(ctx, []models.VideoQueueEntry{e})
	return err
}

// UpsertMany writes every entry in one bulk operation.
func (s *Store) UpsertMany(ctx context.Context, entries []models.VideoQueueEntry) (UpsertResult, error) {
	if len(entries) == 0 {
		return UpsertResult{}, nil
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		writes = append(writes, upsertModel(e, now))
	}
	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Inserted: res.UpsertedCount, Updated: res.MatchedCount}, nil
}

// DeleteForParents removes every (parent, video) pair in parentIDs x videoIDs.
// Returns the number of documents deleted.
func (s *Store) DeleteForParents(ctx context.Context, parentIDs, videoIDs []string) (int64, error) {
	if len(parentIDs) == 0 || len(videoIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{
		"parent_id": bson.M{"$in": parentIDs},
		"video_id":  bson.M{"$in": videoIDs},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByParent returns the parent's queue, newest first.
func (s *Store) ListByParent(ctx context.Context, parentID string) ([]models.VideoQueueEntry, error) {
	cur, err := s.c.Find(ctx, bson.M{"parent_id": parentID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.VideoQueueEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear empties the parent's queue.
// Returns the number of documents deleted.
func (s *Store) Clear(ctx context.Context, parentID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"parent_id": parentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns how many videos are in the parent's queue.
func (s *Store) Count(ctx context.Context, parentID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"parent_id": parentID})
}
