// internal/domain/models/childprofile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChildProfile is a parent-owned profile for one child.
//
// SharedWithTeacherIDs lists teachers allowed to read the profile. Only the
// enrollment workflow adds to it (when a join request is created) and only
// class teardown (or a configured denial) removes from it.
type ChildProfile struct {
	ID                   primitive.ObjectID `bson:"_id" json:"id"`
	ParentID             string             `bson:"parent_id" json:"parent_id"`
	Name                 string             `bson:"name" json:"name"`
	Age                  int                `bson:"age" json:"age"`
	AvatarURL            string             `bson:"avatar_url" json:"avatar_url"`
	SharedWithTeacherIDs []string           `bson:"shared_with_teacher_ids" json:"shared_with_teacher_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SharedWith reports whether the teacher can read this profile.
func (p ChildProfile) SharedWith(teacherID string) bool {
	for _, id := range p.SharedWithTeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}
