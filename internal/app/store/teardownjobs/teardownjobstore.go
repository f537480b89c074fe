// internal/app/store/teardownjobs/teardownjobstore.go
package teardownjobstore

import (
	"context"
	"time"

	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("class_teardown_jobs")}
}

// Create inserts a pending job leased to the caller until leaseUntil.
func (s *Store) Create(ctx context.Context, classID primitive.ObjectID, teacherID string, leaseUntil time.Time) (models.TeardownJob, error) {
	now := time.Now().UTC()
	j := models.TeardownJob{
		ID:         uuid.NewString(),
		ClassID:    classID,
		TeacherID:  teacherID,
		Status:     models.TeardownPending,
		Attempts:   1,
		LeaseUntil: leaseUntil.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, j); err != nil {
		return models.TeardownJob{}, err
	}
	return j, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.TeardownJob, error) {
	var j models.TeardownJob
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&j); err != nil {
		return models.TeardownJob{}, err
	}
	return j, nil
}

// GetOpenByClass returns the unfinished job for a class, if any.
func (s *Store) GetOpenByClass(ctx context.Context, classID primitive.ObjectID) (models.TeardownJob, error) {
	var j models.TeardownJob
	err := s.c.FindOne(ctx, bson.M{
		"class_id": classID,
		"status":   bson.M{"$in": []string{models.TeardownPending, models.TeardownResolved}},
	}).Decode(&j)
	if err != nil {
		return models.TeardownJob{}, err
	}
	return j, nil
}

// MarkResolved records the delete-set and advances the job.
func (s *Store) MarkResolved(ctx context.Context, id string, videoIDs, parentIDs []string, profileIDs []primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.TeardownPending},
		bson.M{"$set": bson.M{
			"status":      models.TeardownResolved,
			"video_ids":   nonNilStrings(videoIDs),
			"parent_ids":  nonNilStrings(parentIDs),
			"profile_ids": nonNilIDs(profileIDs),
			"updated_at":  time.Now().UTC(),
		}})
	return err
}

// MarkDone finishes the job.
func (s *Store) MarkDone(ctx context.Context, id string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     models.TeardownDone,
			"updated_at": time.Now().UTC(),
		}})
	return err
}

// RecordError keeps the last failure on the job. Once attempts reaches
// maxAttempts the job is marked failed and no longer claimed.
func (s *Store) RecordError(ctx context.Context, id string, msg string, maxAttempts int) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"last_error": msg,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if maxAttempts <= 0 {
		return nil
	}
	_, err = s.c.UpdateOne(ctx,
		bson.M{
			"_id":      id,
			"status":   bson.M{"$in": []string{models.TeardownPending, models.TeardownResolved}},
			"attempts": bson.M{"$gte": maxAttempts},
		},
		bson.M{"$set": bson.M{"status": models.TeardownFailed}})
	return err
}

// Delete removes a job. Used when a teardown is abandoned before anything
// was deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Claim leases the oldest unfinished job whose lease expired before now.
// It returns mongo.ErrNoDocuments when nothing is claimable.
func (s *Store) Claim(ctx context.Context, now time.Time, lease time.Duration) (models.TeardownJob, error) {
	var j models.TeardownJob
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"status":      bson.M{"$in": []string{models.TeardownPending, models.TeardownResolved}},
			"lease_until": bson.M{"$lt": now.UTC()},
		},
		bson.M{
			"$set": bson.M{"lease_until": now.Add(lease).UTC(), "updated_at": now.UTC()},
			"$inc": bson.M{"attempts": 1},
		},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&j)
	if err != nil {
		return models.TeardownJob{}, err
	}
	return j, nil
}

// CountOpen returns the number of unfinished jobs.
func (s *Store) CountOpen(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"status": bson.M{"$in": []string{models.TeardownPending, models.TeardownResolved}},
	})
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilIDs(v []primitive.ObjectID) []primitive.ObjectID {
	if v == nil {
		return []primitive.ObjectID{}
	}
	return v
}
