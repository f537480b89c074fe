package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateClass creates an active class owned by teacherID with the given roster.
func (f *Fixtures) CreateClass(ctx context.Context, name, teacherID string, students ...models.ClassStudent) models.Class {
	f.t.Helper()

	now := time.Now().UTC()
	if students == nil {
		students = []models.ClassStudent{}
	}
	c := models.Class{
		ID:        primitive.NewObjectID(),
		TeacherID: teacherID,
		Name:      name,
		NameCI:    text.Fold(name),
		Students:  students,
		Content:   []models.ContentItem{},
		Status:    models.ClassActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("classes").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test class: %v", err)
	}
	return c
}

// CreateChildProfile creates a profile owned by parentID.
func (f *Fixtures) CreateChildProfile(ctx context.Context, parentID, name string, sharedWith ...string) models.ChildProfile {
	f.t.Helper()

	now := time.Now().UTC()
	if sharedWith == nil {
		sharedWith = []string{}
	}
	p := models.ChildProfile{
		ID:                   primitive.NewObjectID(),
		ParentID:             parentID,
		Name:                 name,
		Age:                  7,
		AvatarURL:            "https://example.com/avatar.png",
		SharedWithTeacherIDs: sharedWith,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := f.db.Collection("child_profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test child profile: %v", err)
	}
	return p
}

// CreateJoinRequest creates a join request for child in class with the given status.
func (f *Fixtures) CreateJoinRequest(ctx context.Context, class models.Class, child models.ChildProfile, status string) models.ClassJoinRequest {
	f.t.Helper()

	req := models.ClassJoinRequest{
		ID:             primitive.NewObjectID(),
		ClassID:        class.ID,
		TeacherID:      class.TeacherID,
		ParentID:       child.ParentID,
		ChildProfileID: child.ID,
		ChildName:      child.Name,
		ChildAvatarURL: child.AvatarURL,
		Status:         status,
		Viewers:        []string{child.ParentID, class.TeacherID},
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := f.db.Collection("class_join_requests").InsertOne(ctx, req); err != nil {
		f.t.Fatalf("failed to create test join request: %v", err)
	}
	return req
}

// CreateQueueEntry puts videoID in parentID's queue.
func (f *Fixtures) CreateQueueEntry(ctx context.Context, parentID, videoID string) models.VideoQueueEntry {
	f.t.Helper()

	now := time.Now().UTC()
	e := models.VideoQueueEntry{
		ID:        primitive.NewObjectID(),
		ParentID:  parentID,
		VideoID:   videoID,
		Title:     "Video " + videoID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("video_queue").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test queue entry: %v", err)
	}
	return e
}

// StudentOf returns the roster entry for a child profile.
func StudentOf(p models.ChildProfile) models.ClassStudent {
	return models.ClassStudent{StudentID: p.ID, ParentID: p.ParentID}
}
