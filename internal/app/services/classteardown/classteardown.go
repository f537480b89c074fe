// Package classteardown deletes a class and everything it put into the
// world: queue entries it fanned out, teacher grants on child profiles, and
// join requests.
//
// Deletion is a three step job recorded in class_teardown_jobs:
//
//	begin    mark the class deleting and insert the job, in one transaction
//	resolve  compute the delete-set (videos, parents, profiles) and record it
//	commit   apply the delete-set and remove the class, in one transaction
//
// A process that dies between steps leaves a job whose lease eventually
// expires; ResumePending picks it up and continues from the recorded step.
package classteardown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/dalemusser/zozokid/internal/app/services/channels"
	childprofilestore "github.com/dalemusser/zozokid/internal/app/store/childprofiles"
	classstore "github.com/dalemusser/zozokid/internal/app/store/classes"
	joinrequeststore "github.com/dalemusser/zozokid/internal/app/store/joinrequests"
	teardownjobstore "github.com/dalemusser/zozokid/internal/app/store/teardownjobs"
	videoqueuestore "github.com/dalemusser/zozokid/internal/app/store/videoqueue"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/txn"
	"github.com/dalemusser/zozokid/internal/domain/models"
)

const (
	DefaultLease       = 2 * time.Minute
	DefaultMaxAttempts = 5
)

var (
	ErrClassNotFound = errors.New("class not found")

	// ErrAlreadyDeleting means a teardown for the class is already running.
	ErrAlreadyDeleting = errors.New("class is already being deleted")

	ErrForbidden = authz.ErrForbidden
)

// Resolver expands channel references that were stored without a snapshot.
type Resolver interface {
	ResolveMany(ctx context.Context, refs []models.ContentRef) ([]channels.Resolution, error)
}

// Options tunes job leasing.
type Options struct {
	// Lease is how long a running step owns its job before another
	// process may take it over.
	Lease time.Duration
	// MaxAttempts marks a job failed after this many claims.
	MaxAttempts int
}

// Report describes one finished teardown.
type Report struct {
	JobID            string             `json:"job_id"`
	ClassID          primitive.ObjectID `json:"class_id"`
	Videos           int                `json:"videos"`
	Parents          int                `json:"parents"`
	QueueDeleted     int64              `json:"queue_deleted"`
	ProfilesUnshared int64              `json:"profiles_unshared"`
	RequestsDeleted  int64              `json:"requests_deleted"`
}

// Service runs class teardowns.
type Service struct {
	db       *mongo.Database
	classes  *classstore.Store
	requests *joinrequeststore.Store
	profiles *childprofilestore.Store
	queue    *videoqueuestore.Store
	jobs     *teardownjobstore.Store
	resolver Resolver
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Service. Zero options take the package defaults.
func New(db *mongo.Database, resolver Resolver, opts Options, logger *zap.Logger) *Service {
	if opts.Lease <= 0 {
		opts.Lease = DefaultLease
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		classes:  classstore.New(db),
		requests: joinrequeststore.New(db),
		profiles: childprofilestore.New(db),
		queue:    videoqueuestore.New(db),
		jobs:     teardownjobstore.New(db),
		resolver: resolver,
		opts:     opts,
		log:      logger,
		now:      time.Now,
	}
}

// DeleteClass tears the class down inline. If the delete-set cannot be
// resolved (for example the video platform is unreachable) nothing is
// deleted, the class goes back to active and the error is returned. A
// commit failure leaves the job for ResumePending. A class left deleting by
// a job that gave up is torn down again from scratch.
func (s *Service) DeleteClass(ctx context.Context, actor authz.Actor, classID primitive.ObjectID) (Report, error) {
	class, err := s.classes.GetByID(ctx, classID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Report{}, ErrClassNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if !actor.IsTeacher() || class.TeacherID != actor.ID {
		return Report{}, ErrForbidden
	}
	if class.Status == models.ClassDeleting {
		// A deleting class with no open job was given up on. Start over.
		_, err := s.jobs.GetOpenByClass(ctx, classID)
		if err == nil {
			return Report{}, ErrAlreadyDeleting
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return Report{}, fmt.Errorf("find teardown job: %w", err)
		}
	}

	job, err := s.begin(ctx, class)
	if err != nil {
		return Report{}, err
	}

	job, err = s.resolve(ctx, job)
	if err != nil {
		s.abandon(ctx, job, err)
		return Report{}, err
	}

	rep, err := s.commit(ctx, job)
	if err != nil {
		s.recordError(ctx, job, err)
		return Report{}, err
	}
	return rep, nil
}

// ResumePending finishes every job whose lease has expired and returns how
// many completed. Failures are recorded on the job and do not stop the pass.
// A job that still cannot resolve its delete-set on its last attempt is
// abandoned and its class restored.
func (s *Service) ResumePending(ctx context.Context) (int, error) {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		job, err := s.jobs.Claim(ctx, s.now(), s.opts.Lease)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return done, nil
		}
		if err != nil {
			return done, fmt.Errorf("claim teardown job: %w", err)
		}

		s.log.Info("resuming class teardown",
			zap.String("job_id", job.ID),
			zap.String("class_id", job.ClassID.Hex()),
			zap.String("status", job.Status),
			zap.Int("attempt", job.Attempts))

		if job.Status == models.TeardownPending {
			job, err = s.resolve(ctx, job)
			if err != nil {
				// Nothing was deleted yet. Out of attempts, the class goes
				// back to active rather than staying stuck in deleting.
				if job.Attempts >= s.opts.MaxAttempts {
					s.abandon(ctx, job, err)
					continue
				}
				s.recordError(ctx, job, err)
				continue
			}
		}
		if _, err := s.commit(ctx, job); err != nil {
			s.recordError(ctx, job, err)
			continue
		}
		done++
	}
}

func (s *Service) begin(ctx context.Context, class models.Class) (models.TeardownJob, error) {
	var job models.TeardownJob
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		// class.Status is active, or deleting for a restart. Either way the
		// write bumps the version so concurrent begins conflict.
		ok, err := s.classes.SetStatus(ctx, class.ID, class.Status, models.ClassDeleting)
		if err != nil {
			return fmt.Errorf("mark class deleting: %w", err)
		}
		if !ok {
			return ErrAlreadyDeleting
		}
		if class.Status == models.ClassDeleting {
			if _, err := s.jobs.GetOpenByClass(ctx, class.ID); err == nil {
				return ErrAlreadyDeleting
			} else if !errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("find teardown job: %w", err)
			}
		}
		j, err := s.jobs.Create(ctx, class.ID, class.TeacherID, s.now().Add(s.opts.Lease))
		if err != nil {
			return fmt.Errorf("create teardown job: %w", err)
		}
		job = j
		return nil
	})
	if err != nil {
		return models.TeardownJob{}, err
	}
	s.log.Info("class teardown started",
		zap.String("job_id", job.ID),
		zap.String("class_id", class.Code()))
	return job, nil
}

// resolve records the delete-set on the job: every video the class fanned
// out, the parents on its roster, and every child profile that was enrolled
// or asked to enroll.
func (s *Service) resolve(ctx context.Context, job models.TeardownJob) (models.TeardownJob, error) {
	class, err := s.classes.GetByID(ctx, job.ClassID)
	if err != nil {
		return job, fmt.Errorf("load class: %w", err)
	}

	videos := newStringSet()
	var live []models.ContentRef
	for _, it := range class.Content {
		switch {
		case it.HasSnapshot():
			videos.add(it.VideoIDs...)
		case it.Type == models.ContentVideo:
			videos.add(it.ExternalID)
		default:
			live = append(live, models.ContentRef{Kind: it.Type, ExternalID: it.ExternalID})
		}
	}
	if len(live) > 0 {
		resolved, err := s.resolver.ResolveMany(ctx, live)
		if err != nil {
			return job, fmt.Errorf("resolve channels: %w", err)
		}
		for _, r := range resolved {
			videos.add(r.VideoIDs()...)
		}
	}

	requesters, err := s.requests.ChildProfileIDsByClass(ctx, class.ID)
	if err != nil {
		return job, fmt.Errorf("list requesters: %w", err)
	}
	profiles := make([]primitive.ObjectID, 0, len(class.Students)+len(requesters))
	seen := make(map[primitive.ObjectID]struct{})
	for _, st := range class.Students {
		if _, ok := seen[st.StudentID]; !ok {
			seen[st.StudentID] = struct{}{}
			profiles = append(profiles, st.StudentID)
		}
	}
	for _, id := range requesters {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			profiles = append(profiles, id)
		}
	}

	job.VideoIDs = videos.list()
	job.ParentIDs = class.ParentIDs()
	job.ProfileIDs = profiles
	if err := s.jobs.MarkResolved(ctx, job.ID, job.VideoIDs, job.ParentIDs, job.ProfileIDs); err != nil {
		return job, fmt.Errorf("record delete-set: %w", err)
	}
	job.Status = models.TeardownResolved
	return job, nil
}

func (s *Service) commit(ctx context.Context, job models.TeardownJob) (Report, error) {
	rep := Report{
		JobID:   job.ID,
		ClassID: job.ClassID,
		Videos:  len(job.VideoIDs),
		Parents: len(job.ParentIDs),
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		deleted, err := s.queue.DeleteForParents(ctx, job.ParentIDs, job.VideoIDs)
		if err != nil {
			return fmt.Errorf("delete queue entries: %w", err)
		}

		// A request filed after resolve still shared its child with the
		// teacher, and DeleteByClass below removes it, so re-read them here.
		requesters, err := s.requests.ChildProfileIDsByClass(ctx, job.ClassID)
		if err != nil {
			return fmt.Errorf("list requesters: %w", err)
		}
		var revoke []primitive.ObjectID
		for _, pid := range unionIDs(job.ProfileIDs, requesters) {
			tied, err := s.stillTied(ctx, job, pid)
			if err != nil {
				return err
			}
			if !tied {
				revoke = append(revoke, pid)
			}
		}
		unshared, err := s.profiles.Unshare(ctx, revoke, job.TeacherID)
		if err != nil {
			return fmt.Errorf("unshare profiles: %w", err)
		}

		requests, err := s.requests.DeleteByClass(ctx, job.ClassID)
		if err != nil {
			return fmt.Errorf("delete join requests: %w", err)
		}
		if _, err := s.classes.Delete(ctx, job.ClassID); err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
		if err := s.jobs.MarkDone(ctx, job.ID); err != nil {
			return fmt.Errorf("finish teardown job: %w", err)
		}

		rep.QueueDeleted = deleted
		rep.ProfilesUnshared = unshared
		rep.RequestsDeleted = requests
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	s.log.Info("class teardown finished",
		zap.String("job_id", job.ID),
		zap.String("class_id", job.ClassID.Hex()),
		zap.Int("videos", rep.Videos),
		zap.Int("parents", rep.Parents),
		zap.Int64("queue_deleted", rep.QueueDeleted),
		zap.Int64("profiles_unshared", rep.ProfilesUnshared),
		zap.Int64("requests_deleted", rep.RequestsDeleted))
	return rep, nil
}

// stillTied reports whether the child keeps a reason for the teacher to see
// its profile once this class is gone.
func (s *Service) stillTied(ctx context.Context, job models.TeardownJob, childID primitive.ObjectID) (bool, error) {
	enrolled, err := s.classes.TeacherHasStudent(ctx, job.TeacherID, childID, job.ClassID)
	if err != nil {
		return false, fmt.Errorf("check other classes: %w", err)
	}
	if enrolled {
		return true, nil
	}
	pending, err := s.requests.HasPendingWithTeacher(ctx, job.TeacherID, childID, job.ClassID)
	if err != nil {
		return false, fmt.Errorf("check other requests: %w", err)
	}
	return pending, nil
}

// abandon undoes begin after a resolve failure. Nothing has been deleted
// yet, so the class simply returns to active.
func (s *Service) abandon(ctx context.Context, job models.TeardownJob, cause error) {
	log := s.log.With(zap.String("job_id", job.ID), zap.String("class_id", job.ClassID.Hex()))
	log.Warn("class teardown abandoned", zap.Error(cause))

	// Use a fresh context: ctx may be the reason resolve failed.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.jobs.Delete(rctx, job.ID); err != nil {
		log.Error("delete abandoned teardown job", zap.Error(err))
		return
	}
	if _, err := s.classes.SetStatus(rctx, job.ClassID, models.ClassDeleting, models.ClassActive); err != nil {
		log.Error("restore class after abandoned teardown", zap.Error(err))
	}
}

func (s *Service) recordError(ctx context.Context, job models.TeardownJob, cause error) {
	s.log.Warn("class teardown step failed",
		zap.String("job_id", job.ID),
		zap.String("class_id", job.ClassID.Hex()),
		zap.String("status", job.Status),
		zap.Int("attempt", job.Attempts),
		zap.Error(cause))
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.jobs.RecordError(rctx, job.ID, cause.Error(), s.opts.MaxAttempts); err != nil {
		s.log.Error("record teardown failure", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func unionIDs(a, b []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(a)+len(b))
	out := make([]primitive.ObjectID, 0, len(a)+len(b))
	for _, id := range append(append([]primitive.ObjectID{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type stringSet struct {
	seen  map[string]struct{}
	order []string
}

func newStringSet() *stringSet { return &stringSet{seen: map[string]struct{}{}} }

func (s *stringSet) add(vals ...string) {
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.order = append(s.order, v)
	}
}

func (s *stringSet) list() []string { return s.order }
