// internal/app/store/classes/classstore.go
package classstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotActive means the class does not exist or is being torn down.
var ErrNotActive = errors.New("class not found or not active")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("classes")}
}

// Create inserts an active class with an empty roster and content ledger.
func (s *Store) Create(ctx context.Context, c models.Class) (models.Class, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.Status = models.ClassActive
	c.Version = 0
	if c.Students == nil {
		c.Students = []models.ClassStudent{}
	}
	if c.Content == nil {
		c.Content = []models.ContentItem{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Class{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Class, error) {
	var c models.Class
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Class{}, err
	}
	return c, nil
}

// ListByTeacher returns the teacher's classes ordered by name.
func (s *Store) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"teacher_id": teacherID, "status": models.ClassActive}, opts)
}

// ListByStudent returns the active classes a child profile is enrolled in.
func (s *Store) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Class, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"students.student_id": studentID, "status": models.ClassActive}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Class, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Class{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendContent pushes one content entry onto an active class.
func (s *Store) AppendContent(ctx context.Context, id primitive.ObjectID, item models.ContentItem) error {
	item.AddedAt = models.StampAddedAt(item.AddedAt)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ClassActive},
		bson.M{
			"$push": bson.M{"content": item},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotActive
	}
	return nil
}

// Touch bumps the version of an active class. Writers that depend on the
// class staying active call it inside their transaction so they conflict
// with a concurrent teardown. ErrNotActive when the class is gone or
// deleting.
func (s *Store) Touch(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ClassActive},
		bson.M{"$inc": bson.M{"version": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotActive
	}
	return nil
}

// PullContent removes the content entry identified by (externalID, addedAt).
// It reports whether an entry was removed.
func (s *Store) PullContent(ctx context.Context, id primitive.ObjectID, externalID string, addedAt time.Time) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": models.ClassActive,
			"content": bson.M{"$elemMatch": bson.M{
				"external_id": externalID,
				"added_at":    models.StampAddedAt(addedAt),
			}},
		},
		bson.M{
			"$pull": bson.M{"content": bson.M{
				"external_id": externalID,
				"added_at":    models.StampAddedAt(addedAt),
			}},
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddStudent puts a (student, parent) pair on the roster. Adding a pair that
// is already present changes nothing.
func (s *Store) AddStudent(ctx context.Context, id primitive.ObjectID, st models.ClassStudent) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": models.ClassActive,
			"students": bson.M{"$not": bson.M{"$elemMatch": bson.M{
				"student_id": st.StudentID,
				"parent_id":  st.ParentID,
			}}},
		},
		bson.M{
			"$push": bson.M{"students": st},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetStatus moves a class from one status to another. It reports false when
// the class was not in the from status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set": bson.M{"status": to, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Delete removes a class by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// TeacherHasStudent reports whether any class of teacherID other than
// except still has studentID on its roster.
func (s *Store) TeacherHasStudent(ctx context.Context, teacherID string, studentID, except primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"_id":                 bson.M{"$ne": except},
		"teacher_id":          teacherID,
		"students.student_id": studentID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
