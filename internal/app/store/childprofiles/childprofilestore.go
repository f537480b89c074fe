// internal/app/store/childprofiles/childprofilestore.go
package childprofilestore

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
	return &Store{c: db.Collection("child_profiles")}
}

func (s *Store) Create(ctx context.Context, p models.ChildProfile) (models.ChildProfile, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	if p.SharedWithTeacherIDs == nil {
		p.SharedWithTeacherIDs = []string{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.ChildProfile{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ChildProfile, error) {
	var p models.ChildProfile
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.ChildProfile{}, err
	}
	return p, nil
}

// GetOwned returns the profile only when parentID owns it; otherwise
// mongo.ErrNoDocuments.
func (s *Store) GetOwned(ctx context.Context, id primitive.ObjectID, parentID string) (models.ChildProfile, error) {
	var p models.ChildProfile
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "parent_id": parentID}).Decode(&p); err != nil {
		return models.ChildProfile{}, err
	}
	return p, nil
}

// ProfilePatch holds the fields UpdateOwned may change. Nil leaves a field as is.
type ProfilePatch struct {
	Name      *string
	Age       *int
	AvatarURL *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.AvatarURL == nil
}

// UpdateOwned merges patch into the profile when parentID owns it and
// returns the updated document. Not owned yields mongo.ErrNoDocuments.
func (s *Store) UpdateOwned(ctx context.Context, id primitive.ObjectID, parentID string, patch ProfilePatch) (models.ChildProfile, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Age != nil {
		set["age"] = *patch.Age
	}
	if patch.AvatarURL != nil {
		set["avatar_url"] = *patch.AvatarURL
	}
	var p models.ChildProfile
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "parent_id": parentID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return models.ChildProfile{}, err
	}
	return p, nil
}

// ListByParent returns a parent's profiles, oldest first.
func (s *Store) ListByParent(ctx context.Context, parentID string) ([]models.ChildProfile, error) {
	cur, err := s.c.Find(ctx, bson.M{"parent_id": parentID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ChildProfile{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShareWith grants teacherID read access to the profile.
func (s *Store) ShareWith(ctx context.Context, id primitive.ObjectID, teacherID string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"shared_with_teacher_ids": teacherID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Unshare revokes teacherID's access on every listed profile.
// Returns the number of profiles modified.
func (s *Store) Unshare(ctx context.Context, ids []primitive.ObjectID, teacherID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "shared_with_teacher_ids": teacherID},
		bson.M{
			"$pull": bson.M{"shared_with_teacher_ids": teacherID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
