// Package enrollment runs the join request workflow: a parent asks for a
// child to join a class, the class's teacher approves or denies.
//
// Creating a request shares the child's profile with the teacher right away,
// so the teacher can see who is asking. Denial keeps that grant unless
// Options.RevokeGrantOnDeny is set.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	childprofilestore "github.com/dalemusser/zozokid/internal/app/store/childprofiles"
	classstore "github.com/dalemusser/zozokid/internal/app/store/classes"
	joinrequeststore "github.com/dalemusser/zozokid/internal/app/store/joinrequests"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/txn"
	"github.com/dalemusser/zozokid/internal/domain/models"
)

// Decisions a teacher can make on a request.
const (
	Approve = models.RequestApproved
	Deny    = models.RequestDenied
)

var (
	ErrClassNotFound    = errors.New("class not found")
	ErrProfileNotFound  = errors.New("child profile not found")
	ErrRequestNotFound  = errors.New("join request not found")
	ErrDuplicateRequest = errors.New("a pending request for this child already exists")
	ErrAlreadyEnrolled  = errors.New("child is already enrolled in this class")
	ErrInvalidDecision  = errors.New("decision must be approved or denied")

	// ErrInvalidTransition means the request was already approved or denied.
	ErrInvalidTransition = errors.New("join request already resolved")

	ErrForbidden = authz.ErrForbidden
)

// Options tunes the workflow.
type Options struct {
	// RevokeGrantOnDeny removes the teacher from the child's shared list on
	// denial when the child has no other class or pending request with them.
	RevokeGrantOnDeny bool
}

// ClassSummary is what a parent sees of a class their child belongs to.
type ClassSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	AvatarURL string             `json:"avatar_url,omitempty"`
	TeacherID string             `json:"teacher_id"`
}

// Service implements the workflow.
type Service struct {
	db       *mongo.Database
	classes  *classstore.Store
	requests *joinrequeststore.Store
	profiles *childprofilestore.Store
	opts     Options
	log      *zap.Logger
}

// New builds a Service.
func New(db *mongo.Database, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		classes:  classstore.New(db),
		requests: joinrequeststore.New(db),
		profiles: childprofilestore.New(db),
		opts:     opts,
		log:      logger,
	}
}

// CreateJoinRequest files a pending request for the parent's child to join
// the class identified by classCode, and shares the child's profile with the
// class's teacher. Both writes commit together, and only while the class is
// still active.
func (s *Service) CreateJoinRequest(ctx context.Context, actor authz.Actor, classCode string, childID primitive.ObjectID) (models.ClassJoinRequest, error) {
	if !actor.IsParent() {
		return models.ClassJoinRequest{}, ErrForbidden
	}
	classID, err := primitive.ObjectIDFromHex(strings.TrimSpace(classCode))
	if err != nil {
		return models.ClassJoinRequest{}, ErrClassNotFound
	}
	class, err := s.classes.GetByID(ctx, classID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassJoinRequest{}, ErrClassNotFound
	}
	if err != nil {
		return models.ClassJoinRequest{}, err
	}
	if class.Status != models.ClassActive {
		return models.ClassJoinRequest{}, ErrClassNotFound
	}

	child, err := s.profiles.GetOwned(ctx, childID, actor.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassJoinRequest{}, ErrProfileNotFound
	}
	if err != nil {
		return models.ClassJoinRequest{}, err
	}
	if class.HasStudent(models.ClassStudent{StudentID: child.ID, ParentID: child.ParentID}) {
		return models.ClassJoinRequest{}, ErrAlreadyEnrolled
	}

	var created models.ClassJoinRequest
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		// Writing the class makes this transaction conflict with a
		// teardown that marks it deleting in between.
		if err := s.classes.Touch(ctx, class.ID); err != nil {
			if errors.Is(err, classstore.ErrNotActive) {
				return ErrClassNotFound
			}
			return fmt.Errorf("check class: %w", err)
		}
		req, err := s.requests.Create(ctx, models.ClassJoinRequest{
			ClassID:        class.ID,
			TeacherID:      class.TeacherID,
			ParentID:       actor.ID,
			ChildProfileID: child.ID,
			ChildName:      child.Name,
			ChildAvatarURL: child.AvatarURL,
			Viewers:        []string{actor.ID, class.TeacherID},
		})
		if err != nil {
			if errors.Is(err, joinrequeststore.ErrDuplicatePending) {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("insert join request: %w", err)
		}
		if err := s.profiles.ShareWith(ctx, child.ID, class.TeacherID); err != nil {
			return fmt.Errorf("share profile: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		return models.ClassJoinRequest{}, err
	}

	s.log.Info("join request created",
		zap.String("request_id", created.ID.Hex()),
		zap.String("class_id", class.Code()),
		zap.String("parent_id", actor.ID))
	return created, nil
}

// ResolveJoinRequest approves or denies a pending request. The status change
// is a compare-and-set on pending, so of two concurrent decisions exactly
// one wins and the other gets ErrInvalidTransition. Approval adds the
// (child, parent) pair to the roster in the same transaction; a pair that
// is already present is not added again.
func (s *Service) ResolveJoinRequest(ctx context.Context, actor authz.Actor, requestID primitive.ObjectID, decision string) (models.ClassJoinRequest, error) {
	if !actor.IsTeacher() {
		return models.ClassJoinRequest{}, ErrForbidden
	}
	if decision != Approve && decision != Deny {
		return models.ClassJoinRequest{}, ErrInvalidDecision
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassJoinRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.ClassJoinRequest{}, err
	}
	if req.TeacherID != actor.ID {
		return models.ClassJoinRequest{}, ErrForbidden
	}
	if req.Terminal() {
		return models.ClassJoinRequest{}, ErrInvalidTransition
	}

	var updated models.ClassJoinRequest
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		class, err := s.classes.GetByID(ctx, req.ClassID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrClassNotFound
		}
		if err != nil {
			return err
		}
		if class.Status != models.ClassActive {
			return ErrClassNotFound
		}

		u, err := s.requests.Transition(ctx, req.ID, decision, actor.ID)
		if errors.Is(err, joinrequeststore.ErrNotPending) {
			return ErrInvalidTransition
		}
		if err != nil {
			return fmt.Errorf("transition join request: %w", err)
		}

		switch decision {
		case Approve:
			if _, err := s.classes.AddStudent(ctx, req.ClassID, req.Student()); err != nil {
				return fmt.Errorf("add student: %w", err)
			}
		case Deny:
			if s.opts.RevokeGrantOnDeny {
				if err := s.revokeIfUntied(ctx, req); err != nil {
					return err
				}
			}
		}
		updated = u
		return nil
	})
	if err != nil {
		return models.ClassJoinRequest{}, err
	}

	s.log.Info("join request resolved",
		zap.String("request_id", req.ID.Hex()),
		zap.String("class_id", req.ClassID.Hex()),
		zap.String("decision", decision))
	return updated, nil
}

// GetRequest returns a join request visible to the actor: the class's
// teacher or the requesting parent.
func (s *Service) GetRequest(ctx context.Context, actor authz.Actor, requestID primitive.ObjectID) (models.ClassJoinRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ClassJoinRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.ClassJoinRequest{}, err
	}
	switch {
	case actor.IsTeacher() && req.TeacherID == actor.ID:
	case actor.IsParent() && req.ParentID == actor.ID:
	default:
		return models.ClassJoinRequest{}, ErrForbidden
	}
	return req, nil
}

// revokeIfUntied drops the teacher's grant on the child when nothing else
// links them: no class of the teacher has the child and no other request to
// the teacher is pending.
func (s *Service) revokeIfUntied(ctx context.Context, req models.ClassJoinRequest) error {
	enrolled, err := s.classes.TeacherHasStudent(ctx, req.TeacherID, req.ChildProfileID, primitive.NilObjectID)
	if err != nil {
		return err
	}
	pending, err := s.requests.HasPendingWithTeacher(ctx, req.TeacherID, req.ChildProfileID, primitive.NilObjectID)
	if err != nil {
		return err
	}
	if enrolled || pending {
		return nil
	}
	_, err = s.profiles.Unshare(ctx, []primitive.ObjectID{req.ChildProfileID}, req.TeacherID)
	return err
}

// ListPending returns the pending requests of a class the teacher owns.
func (s *Service) ListPending(ctx context.Context, actor authz.Actor, classID primitive.ObjectID) ([]models.ClassJoinRequest, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	class, err := s.classes.GetByID(ctx, classID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	if class.TeacherID != actor.ID {
		return nil, ErrForbidden
	}
	return s.requests.ListPendingByClass(ctx, classID)
}

// ListChildClasses returns the active classes the parent's child is enrolled in.
func (s *Service) ListChildClasses(ctx context.Context, actor authz.Actor, childID primitive.ObjectID) ([]ClassSummary, error) {
	if !actor.IsParent() {
		return nil, ErrForbidden
	}
	if _, err := s.profiles.GetOwned(ctx, childID, actor.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	classes, err := s.classes.ListByStudent(ctx, childID)
	if err != nil {
		return nil, err
	}
	out := make([]ClassSummary, 0, len(classes))
	for _, c := range classes {
		out = append(out, ClassSummary{ID: c.ID, Name: c.Name, AvatarURL: c.AvatarURL, TeacherID: c.TeacherID})
	}
	return out, nil
}
