// internal/domain/models/teardownjob.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Teardown job statuses, in the order a job moves through them.
const (
	TeardownPending  = "pending"  // class marked deleting, delete-set not yet resolved
	TeardownResolved = "resolved" // delete-set recorded, commit outstanding
	TeardownDone     = "done"
	TeardownFailed   = "failed"
)

// TeardownJob records the progress of one class deletion so a crash between
// resolving the delete-set and committing it can be resumed.
type TeardownJob struct {
	ID        string             `bson:"_id" json:"id"`
	ClassID   primitive.ObjectID `bson:"class_id" json:"class_id"`
	TeacherID string             `bson:"teacher_id" json:"teacher_id"`
	Status    string             `bson:"status" json:"status"`

	// Recorded by the resolve step.
	VideoIDs   []string             `bson:"video_ids,omitempty" json:"video_ids,omitempty"`
	ParentIDs  []string             `bson:"parent_ids,omitempty" json:"parent_ids,omitempty"`
	ProfileIDs []primitive.ObjectID `bson:"profile_ids,omitempty" json:"profile_ids,omitempty"`

	Attempts   int       `bson:"attempts" json:"attempts"`
	LastError  string    `bson:"last_error,omitempty" json:"last_error,omitempty"`
	LeaseUntil time.Time `bson:"lease_until" json:"lease_until"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
