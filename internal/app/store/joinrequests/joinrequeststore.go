// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicatePending is returned when the child already has a pending
	// request for the class (enforced by a partial unique index).
	ErrDuplicatePending = errors.New("a pending request for this child already exists")

	// ErrNotPending is returned by Transition when the request was already decided.
	ErrNotPending = errors.New("join request is not pending")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("class_join_requests")}
}

// Create inserts a pending request.
func (s *Store) Create(ctx context.Context, r models.ClassJoinRequest) (models.ClassJoinRequest, error) {
	r.ID = primitive.NewObjectID()
	r.Status = models.RequestPending
	r.CreatedAt = time.Now().UTC()
	r.ResolvedAt = nil
	r.ResolvedBy = ""
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ClassJoinRequest{}, ErrDuplicatePending
		}
		return models.ClassJoinRequest{}, err
	}
	return r, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ClassJoinRequest, error) {
	var r models.ClassJoinRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.ClassJoinRequest{}, err
	}
	return r, nil
}

// Transition moves a pending request to a terminal status and returns the
// updated document. A request that is no longer pending is left untouched
// and ErrNotPending is returned; an unknown id yields mongo.ErrNoDocuments.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, to, by string) (models.ClassJoinRequest, error) {
	now := time.Now().UTC()
	var r models.ClassJoinRequest
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestPending},
		bson.M{"$set": bson.M{
			"status":      to,
			"resolved_at": now,
			"resolved_by": by,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassJoinRequest{}, err
	}
	if _, gerr := s.GetByID(ctx, id); gerr != nil {
		return models.ClassJoinRequest{}, gerr
	}
	return models.ClassJoinRequest{}, ErrNotPending
}

// ListPendingByClass returns the class's pending requests, oldest first.
func (s *Store) ListPendingByClass(ctx context.Context, classID primitive.ObjectID) ([]models.ClassJoinRequest, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"class_id": classID, "status": models.RequestPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ClassJoinRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChildProfileIDsByClass returns the distinct child profiles that ever
// requested to join the class.
func (s *Store) ChildProfileIDsByClass(ctx context.Context, classID primitive.ObjectID) ([]primitive.ObjectID, error) {
	vals, err := s.c.Distinct(ctx, "child_profile_id", bson.M{"class_id": classID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ParentIDsByClass returns the distinct parents that ever requested to join
// the class.
func (s *Store) ParentIDsByClass(ctx context.Context, classID primitive.ObjectID) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "parent_id", bson.M{"class_id": classID})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if id, ok := v.(string); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// HasPendingWithTeacher reports whether the child has a pending request to
// any class of teacherID other than except.
func (s *Store) HasPendingWithTeacher(ctx context.Context, teacherID string, childID, except primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"class_id":         bson.M{"$ne": except},
		"teacher_id":       teacherID,
		"child_profile_id": childID,
		"status":           models.RequestPending,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByClass removes every request for a class regardless of status.
// Returns the number of documents deleted.
func (s *Store) DeleteByClass(ctx context.Context, classID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"class_id": classID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
