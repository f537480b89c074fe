// internal/app/store/preferences/preferencestore.go
package preferencestore

import (
	"context"
	"errors"
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
	return &Store{c: db.Collection("parent_preferences")}
}

// Get returns the parent's preferences, or empty lists when none were saved.
func (s *Store) Get(ctx context.Context, parentID string) (models.ParentPreferences, error) {
	var p models.ParentPreferences
	err := s.c.FindOne(ctx, bson.M{"_id": parentID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ParentPreferences{
			ParentID:           parentID,
			AllowedChannelURLs: []string{},
			AllowedCategories:  []string{},
		}, nil
	}
	if err != nil {
		return models.ParentPreferences{}, err
	}
	if p.AllowedChannelURLs == nil {
		p.AllowedChannelURLs = []string{}
	}
	if p.AllowedCategories == nil {
		p.AllowedCategories = []string{}
	}
	return p, nil
}

// Put replaces the parent's preferences, creating the document on first save.
func (s *Store) Put(ctx context.Context, p models.ParentPreferences) (models.ParentPreferences, error) {
	if p.AllowedChannelURLs == nil {
		p.AllowedChannelURLs = []string{}
	}
	if p.AllowedCategories == nil {
		p.AllowedCategories = []string{}
	}
	p.UpdatedAt = time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": p.ParentID},
		bson.M{"$set": bson.M{
			"allowed_channel_urls": p.AllowedChannelURLs,
			"allowed_categories":   p.AllowedCategories,
			"updated_at":           p.UpdatedAt,
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return models.ParentPreferences{}, err
	}
	return p, nil
}
