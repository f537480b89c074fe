// internal/app/store/watchevents/watcheventstore.go
package watcheventstore

import (
	"context"
	"time"

	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("watch_events")}
}

// Record inserts one event. WatchedAt defaults to now.
func (s *Store) Record(ctx context.Context, e models.WatchEvent) (models.WatchEvent, error) {
	e.ID = primitive.NewObjectID()
	if e.WatchedAt.IsZero() {
		e.WatchedAt = time.Now()
	}
	e.WatchedAt = e.WatchedAt.UTC()
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.WatchEvent{}, err
	}
	return e, nil
}

// ListByChild returns the child's events, newest first. A zero since
// returns the full history.
func (s *Store) ListByChild(ctx context.Context, parentID string, childID primitive.ObjectID, since time.Time) ([]models.WatchEvent, error) {
	filter := bson.M{"parent_id": parentID, "child_profile_id": childID}
	if !since.IsZero() {
		filter["watched_at"] = bson.M{"$gte": since.UTC()}
	}
	cur, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "watched_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.WatchEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
