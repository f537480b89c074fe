// internal/domain/models/joinrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Join request statuses. A request leaves pending exactly once.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// ClassJoinRequest is a parent's request to enroll a child in a class.
//
// Viewers holds the parent and teacher ids so list queries can filter on a
// single field. TeacherID, ChildName and ChildAvatarURL are denormalized copies
// taken when the request is created.
type ClassJoinRequest struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	ClassID        primitive.ObjectID `bson:"class_id" json:"class_id"`
	TeacherID      string             `bson:"teacher_id" json:"teacher_id"`
	ParentID       string             `bson:"parent_id" json:"parent_id"`
	ChildProfileID primitive.ObjectID `bson:"child_profile_id" json:"child_profile_id"`
	ChildName      string             `bson:"child_name" json:"child_name"`
	ChildAvatarURL string             `bson:"child_avatar_url" json:"child_avatar_url"`
	Status         string             `bson:"status" json:"status"`
	Viewers        []string           `bson:"viewers" json:"viewers"`

	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy string     `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
}

// Terminal reports whether the request has already been decided.
func (r ClassJoinRequest) Terminal() bool {
	return r.Status == RequestApproved || r.Status == RequestDenied
}

// Student returns the roster entry an approval adds.
func (r ClassJoinRequest) Student() ClassStudent {
	return ClassStudent{StudentID: r.ChildProfileID, ParentID: r.ParentID}
}
