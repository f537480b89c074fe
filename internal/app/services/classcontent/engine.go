// Package classcontent fans class content out to the video queues of every
// enrolled student's parent and reverses the fan-out on removal.
//
// Each addition records the resolved video ids on its ContentItem. Removal
// deletes exactly that snapshot, so adding and then removing an item leaves
// queues as they were even when the channel changed upstream in between.
// Items without a snapshot are re-resolved live.
package classcontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/zozokid/internal/app/services/channels"
	classstore "github.com/dalemusser/zozokid/internal/app/store/classes"
	videoqueuestore "github.com/dalemusser/zozokid/internal/app/store/videoqueue"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/zozokid/internal/app/system/txn"
	"github.com/dalemusser/zozokid/internal/domain/models"
)

// Resolver expands a content reference into videos.
type Resolver interface {
	Resolve(ctx context.Context, ref models.ContentRef) (channels.Resolution, error)
}

// Display carries optional presentation data for a new content item, such
// as the channel title and avatar the teacher picked from search results.
type Display struct {
	Title        string
	ThumbnailURL string
}

// CommitResult summarizes one committed addition or removal.
type CommitResult struct {
	OpID            string             `json:"op_id"`
	Item            models.ContentItem `json:"item"`
	Videos          int                `json:"videos"`
	ParentsAffected int                `json:"parents_affected"`
	QueueChanges    int64              `json:"queue_changes"`
	SkippedBatches  int                `json:"skipped_batches,omitempty"`
}

// Engine runs content fan-out for classes.
type Engine struct {
	db       *mongo.Database
	classes  *classstore.Store
	queue    *videoqueuestore.Store
	resolver Resolver
	log      *zap.Logger
	now      func() time.Time
}

// New builds an Engine.
func New(db *mongo.Database, resolver Resolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:       db,
		classes:  classstore.New(db),
		queue:    videoqueuestore.New(db),
		resolver: resolver,
		log:      logger,
		now:      time.Now,
	}
}

// CreateClass creates an empty class owned by the teacher.
func (e *Engine) CreateClass(ctx context.Context, actor authz.Actor, name, avatarURL string) (models.Class, error) {
	if !actor.IsTeacher() {
		return models.Class{}, ErrForbidden
	}
	name = htmlsanitize.Text(name)
	if strings.TrimSpace(name) == "" {
		return models.Class{}, ErrInvalidName
	}
	c, err := e.classes.Create(ctx, models.Class{
		TeacherID: actor.ID,
		Name:      name,
		AvatarURL: htmlsanitize.URL(avatarURL),
	})
	if err != nil {
		return models.Class{}, fmt.Errorf("create class: %w", err)
	}
	e.log.Info("class created", zap.String("class_id", c.Code()), zap.String("teacher_id", actor.ID))
	return c, nil
}

// ListClasses returns the teacher's active classes.
func (e *Engine) ListClasses(ctx context.Context, actor authz.Actor) ([]models.Class, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	return e.classes.ListByTeacher(ctx, actor.ID)
}

// GetClass returns a class its teacher owns.
func (e *Engine) GetClass(ctx context.Context, actor authz.Actor, classID primitive.ObjectID) (models.Class, error) {
	c, err := e.classes.GetByID(ctx, classID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Class{}, ErrClassNotFound
	}
	if err != nil {
		return models.Class{}, err
	}
	if !actor.IsTeacher() || c.TeacherID != actor.ID {
		return models.Class{}, ErrForbidden
	}
	return c, nil
}

func (e *Engine) activeClass(ctx context.Context, actor authz.Actor, classID primitive.ObjectID) (models.Class, error) {
	c, err := e.GetClass(ctx, actor, classID)
	if err != nil {
		return models.Class{}, err
	}
	if c.Status != models.ClassActive {
		return models.Class{}, ErrClassDeleting
	}
	return c, nil
}

// AddContent resolves ref and upserts every resolved video into the queue of
// every distinct parent on the roster, appending the content item in the
// same transaction.
func (e *Engine) AddContent(ctx context.Context, actor authz.Actor, classID primitive.ObjectID, ref models.ContentRef, disp Display) (CommitResult, error) {
	class, err := e.activeClass(ctx, actor, classID)
	if err != nil {
		return CommitResult{}, err
	}
	if len(class.Students) == 0 {
		return CommitResult{}, ErrNoStudents
	}

	res, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return CommitResult{}, err
	}
	if len(res.Videos) == 0 {
		return CommitResult{}, ErrNoEligibleVideos
	}

	item := models.ContentItem{
		Type:         ref.Kind,
		ExternalID:   ref.ExternalID,
		Title:        firstNonEmpty(htmlsanitize.Text(disp.Title), htmlsanitize.Text(res.Title), ref.ExternalID),
		ThumbnailURL: firstNonEmpty(htmlsanitize.URL(disp.ThumbnailURL), htmlsanitize.URL(res.ThumbnailURL)),
		AddedAt:      models.StampAddedAt(e.now()),
		VideoIDs:     distinctStrings(res.VideoIDs()),
	}

	out := CommitResult{OpID: uuid.NewString(), Item: item, SkippedBatches: res.SkippedBatches}
	err = txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		// Re-read the roster inside the transaction so an approval that
		// landed while we were resolving still receives the content.
		cur, err := e.classes.GetByID(ctx, classID)
		if err != nil {
			return err
		}
		if cur.Status != models.ClassActive {
			return ErrClassDeleting
		}
		plan := PlanAdd(cur, res.Videos)
		ur, err := e.queue.UpsertMany(ctx, plan.Entries)
		if err != nil {
			return fmt.Errorf("upsert queue entries: %w", err)
		}
		if err := e.classes.AppendContent(ctx, classID, item); err != nil {
			if errors.Is(err, classstore.ErrNotActive) {
				return ErrClassDeleting
			}
			return fmt.Errorf("append content: %w", err)
		}
		out.Videos = len(item.VideoIDs)
		out.ParentsAffected = len(plan.Parents)
		out.QueueChanges = ur.Inserted + ur.Updated
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}

	e.log.Info("content added",
		zap.String("op_id", out.OpID),
		zap.String("class_id", class.Code()),
		zap.String("kind", ref.Kind),
		zap.String("external_id", ref.ExternalID),
		zap.Int("videos", out.Videos),
		zap.Int("parents", out.ParentsAffected),
		zap.Int("skipped_batches", out.SkippedBatches))
	return out, nil
}

// RemoveContent deletes the item's videos from every distinct parent's queue
// and removes exactly the (externalID, addedAt) entry from the ledger, in one
// transaction.
func (e *Engine) RemoveContent(ctx context.Context, actor authz.Actor, classID primitive.ObjectID, externalID string, addedAt time.Time) (CommitResult, error) {
	class, err := e.activeClass(ctx, actor, classID)
	if err != nil {
		return CommitResult{}, err
	}
	item, ok := class.FindContent(externalID, addedAt)
	if !ok {
		return CommitResult{}, ErrContentNotFound
	}

	videoIDs, err := e.videoSet(ctx, item)
	if err != nil {
		return CommitResult{}, err
	}

	out := CommitResult{OpID: uuid.NewString(), Item: item}
	var pairs int
	err = txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		cur, err := e.classes.GetByID(ctx, classID)
		if err != nil {
			return err
		}
		plan := PlanRemove(cur, videoIDs)
		pairs = plan.Pairs()
		deleted, err := e.queue.DeleteForParents(ctx, plan.Parents, plan.VideoIDs)
		if err != nil {
			return fmt.Errorf("delete queue entries: %w", err)
		}
		removed, err := e.classes.PullContent(ctx, classID, item.ExternalID, item.AddedAt)
		if err != nil {
			return fmt.Errorf("pull content: %w", err)
		}
		if !removed {
			// Removed concurrently, or the class left active. Abort so the
			// queue deletions roll back.
			return ErrContentNotFound
		}
		out.Videos = len(plan.VideoIDs)
		out.ParentsAffected = len(plan.Parents)
		out.QueueChanges = deleted
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}

	e.log.Info("content removed",
		zap.String("op_id", out.OpID),
		zap.String("class_id", class.Code()),
		zap.String("external_id", item.ExternalID),
		zap.Bool("snapshot", item.HasSnapshot()),
		zap.Int("videos", out.Videos),
		zap.Int("pairs", pairs),
		zap.Int64("queue_deleted", out.QueueChanges))
	return out, nil
}

// videoSet returns the ids an item fanned out to: its snapshot, or for a
// channel recorded without one, a live re-resolution.
func (e *Engine) videoSet(ctx context.Context, item models.ContentItem) ([]string, error) {
	if item.HasSnapshot() {
		return item.VideoIDs, nil
	}
	ref := models.ContentRef{Kind: item.Type, ExternalID: item.ExternalID}
	if !ref.IsChannel() {
		return []string{item.ExternalID}, nil
	}
	res, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("re-resolve %s %s: %w", item.Type, item.ExternalID, err)
	}
	return res.VideoIDs(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
