// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureClasses(ctx, db); err != nil {
		problems = append(problems, "classes: "+err.Error())
	}
	if err := ensureJoinRequests(ctx, db); err != nil {
		problems = append(problems, "class_join_requests: "+err.Error())
	}
	if err := ensureChildProfiles(ctx, db); err != nil {
		problems = append(problems, "child_profiles: "+err.Error())
	}
	// one document per (parent, video); the fan-out upserts rely on it
	if err := ensureVideoQueue(ctx, db); err != nil {
		problems = append(problems, "video_queue: "+err.Error())
	}
	if err := ensureWatchEvents(ctx, db); err != nil {
		problems = append(problems, "watch_events: "+err.Error())
	}
	if err := ensureTeardownJobs(ctx, db); err != nil {
		problems = append(problems, "class_teardown_jobs: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

// existingIndex is the subset of listIndexes output the reconciler compares.
type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  bool   `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

// desiredIndex is a mongo.IndexModel flattened for comparison.
type desiredIndex struct {
	model   mongo.IndexModel
	name    string
	sig     string
	unique  bool
	partial string
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if o := m.Options; o != nil {
		if o.Name != nil {
			d.name = *o.Name
		}
		d.unique = o.Unique != nil && *o.Unique
		if o.PartialFilterExpression != nil {
			d.partial = fmt.Sprint(o.PartialFilterExpression)
		}
	}
	return d
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// partialSig renders a stored partial filter the way describe renders the
// desired one, so {status: "pending"} compares equal in both directions.
func partialSig(d bson.D) string {
	if len(d) == 0 {
		return ""
	}
	m := bson.M{}
	for _, e := range d {
		m[e.Key] = e.Value
	}
	return fmt.Sprint(m)
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes to reconcile.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		want := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", want.name),
			zap.String("keys", want.sig),
			zap.Bool("unique", want.unique))

		action := "created"
		if have, ok := existing[want.sig]; ok {
			if have.Unique == want.unique && partialSig(have.Partial) == want.partial &&
				(want.name == "" || have.Name == want.name) {
				log.Debug("index already in place")
				continue
			}
			// Options or name drifted: drop and recreate under the desired shape.
			if _, err := coll.Indexes().DropOne(ctx, have.Name); err != nil {
				log.Warn("drop drifted index failed", zap.String("existing", have.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s failed: %v", coll.Name(), want.name, have.Name, err))
				continue
			}
			action = "recreated"
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("index ensure failed", zap.Error(err))
			if want.unique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s",
					coll.Name(), want.name, duplicateHint(coll.Name(), want.sig)))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), want.name, err))
			}
			continue
		}
		log.Info("index "+action, zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// duplicateHint points the operator at the rows blocking a unique index.
func duplicateHint(coll, sig string) string {
	if coll == "video_queue" && strings.Contains(sig, "video_id:1") {
		return "; duplicates exist on (parent_id, video_id). Example finder:\n" +
			`db.video_queue.aggregate([{ $group: { _id: { p: "$parent_id", v: "$video_id" }, n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`
	}
	if coll == "class_join_requests" {
		return "; more than one pending request exists for a (class, child) pair"
	}
	return ""
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureClasses(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("classes")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Teacher's class list, newest first
		{
			Keys:    bson.D{{Key: "teacher_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_classes_teacher_created__id"),
		},
		// Enrollment lookups: classes a child is in, and the teacher tie check
		// used by teardown and denial.
		{
			Keys:    bson.D{{Key: "students.student_id", Value: 1}},
			Options: options.Index().SetName("idx_classes_student"),
		},
		{
			Keys:    bson.D{{Key: "teacher_id", Value: 1}, {Key: "students.student_id", Value: 1}},
			Options: options.Index().SetName("idx_classes_teacher_student"),
		},
	})
}

func ensureJoinRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("class_join_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending request per (class, child). Decided requests
		// fall out of the index, so a denied child can ask again.
		{
			Keys: bson.D{{Key: "class_id", Value: 1}, {Key: "child_profile_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_joinreq_class_child_pending").
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
		// Teacher's pending list for a class
		{
			Keys:    bson.D{{Key: "class_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_joinreq_class_status_created"),
		},
		// Viewer lists (parent or teacher)
		{
			Keys:    bson.D{{Key: "viewers", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_joinreq_viewers_status"),
		},
		{
			Keys:    bson.D{{Key: "teacher_id", Value: 1}, {Key: "child_profile_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_joinreq_teacher_child_status"),
		},
	})
}

func ensureChildProfiles(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("child_profiles")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_profiles_parent_created"),
		},
		{
			Keys:    bson.D{{Key: "shared_with_teacher_ids", Value: 1}},
			Options: options.Index().SetName("idx_profiles_shared"),
		},
	})
}

func ensureVideoQueue(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("video_queue")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "video_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_queue_parent_video"),
		},
		// Player feed, newest first
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_queue_parent_created"),
		},
	})
}

func ensureWatchEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("watch_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Analytics window per child
		{
			Keys: bson.D{
				{Key: "parent_id", Value: 1},
				{Key: "child_profile_id", Value: 1},
				{Key: "watched_at", Value: -1},
			},
			Options: options.Index().SetName("idx_watch_parent_child_watched"),
		},
	})
}

func ensureTeardownJobs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("class_teardown_jobs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Claim scans unfinished jobs by lease, oldest first
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "lease_until", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_teardown_status_lease_created"),
		},
		{
			Keys:    bson.D{{Key: "class_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_teardown_class_status"),
		},
	})
}
