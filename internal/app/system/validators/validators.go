// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/zozokid/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Fan-out state
	ensure("classes", classesSchema())
	ensure("video_queue", videoQueueSchema())

	// Enrollment
	ensure("child_profiles", childProfilesSchema())
	ensure("class_join_requests", joinRequestsSchema())

	ensure("watch_events", watchEventsSchema())
	ensure("parent_preferences", parentPreferencesSchema())

	// Job bookkeeping is written only by the teardown service; no validator.
	ensure("class_teardown_jobs", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	integer  = bson.M{"bsonType": bson.A{"int", "long"}}
)

func classesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"teacher_id", "name", "name_ci", "students", "content", "status", "version"},
			"properties": bson.M{
				"teacher_id": nonBlank,
				"name":       nonBlank,
				"name_ci":    nonBlank,
				"avatar_url": bson.M{"bsonType": "string"},
				"status":     bson.M{"enum": bson.A{models.ClassActive, models.ClassDeleting}},
				"version":    integer,
				"students": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"student_id", "parent_id"},
						"properties": bson.M{
							"student_id": bson.M{"bsonType": "objectId"},
							"parent_id":  nonBlank,
						},
					},
				},
				"content": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"type", "external_id", "added_at"},
						"properties": bson.M{
							"type":        bson.M{"enum": bson.A{models.ContentVideo, models.ContentChannel}},
							"external_id": nonBlank,
							"added_at":    bson.M{"bsonType": "date"},
							"video_ids":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
						},
					},
				},
			},
		},
	}
}

func videoQueueSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"parent_id", "video_id"},
			"properties": bson.M{
				"parent_id":     nonBlank,
				"video_id":      nonBlank,
				"title":         bson.M{"bsonType": "string"},
				"thumbnail_url": bson.M{"bsonType": "string"},
				"channel_id":    bson.M{"bsonType": "string"},
				"channel_title": bson.M{"bsonType": "string"},
			},
		},
	}
}

func parentPreferencesSchema() bson.M {
	categories := make(bson.A, 0, len(models.ContentCategories))
	for _, c := range models.ContentCategories {
		categories = append(categories, c)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"allowed_channel_urls", "allowed_categories"},
			"properties": bson.M{
				"_id":                  nonBlank,
				"allowed_channel_urls": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"allowed_categories":   bson.M{"bsonType": "array", "items": bson.M{"enum": categories}},
			},
		},
	}
}

func childProfilesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"parent_id", "name", "shared_with_teacher_ids"},
			"properties": bson.M{
				"parent_id":               nonBlank,
				"name":                    nonBlank,
				"age":                     integer,
				"avatar_url":              bson.M{"bsonType": "string"},
				"shared_with_teacher_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func joinRequestsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"class_id", "teacher_id", "parent_id", "child_profile_id", "status", "viewers"},
			"properties": bson.M{
				"class_id":         bson.M{"bsonType": "objectId"},
				"teacher_id":       nonBlank,
				"parent_id":        nonBlank,
				"child_profile_id": bson.M{"bsonType": "objectId"},
				"status":           bson.M{"enum": bson.A{models.RequestPending, models.RequestApproved, models.RequestDenied}},
				"viewers":          bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"resolved_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}

func watchEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"parent_id", "child_profile_id", "video_id", "watch_duration_seconds", "watched_at"},
			"properties": bson.M{
				"parent_id":              nonBlank,
				"child_profile_id":       bson.M{"bsonType": "objectId"},
				"video_id":               nonBlank,
				"watch_duration_seconds": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"watched_at":             bson.M{"bsonType": "date"},
			},
		},
	}
}
