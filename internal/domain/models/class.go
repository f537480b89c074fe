// internal/domain/models/class.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Class statuses.
const (
	ClassActive   = "active"
	ClassDeleting = "deleting"
)

// Class is a teacher-owned cohort whose content fans out to every enrolled
// student's parent queue.
//
// NOTE:
//   - Students is a set keyed by (student_id, parent_id). Writers push only
//     under a $not/$elemMatch guard on the pair, so concurrent approvals
//     cannot duplicate an entry.
//   - Content is an append log. Entries are removed by (external_id, added_at).
//   - Version is incremented by every roster, content or status change, and
//     by join requests filed against the class.
//   - The class code shared with parents is ID.Hex().
type Class struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	TeacherID string             `bson:"teacher_id" json:"teacher_id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	AvatarURL string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`

	Students []ClassStudent `bson:"students" json:"students"`
	Content  []ContentItem  `bson:"content" json:"content"`

	Status  string `bson:"status" json:"status"`
	Version int64  `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ClassStudent is one roster entry. StudentID is the child profile id.
// Field order is fixed; $addToSet compares embedded documents field by field.
type ClassStudent struct {
	StudentID primitive.ObjectID `bson:"student_id" json:"student_id"`
	ParentID  string             `bson:"parent_id" json:"parent_id"`
}

// Code returns the join code parents use to request enrollment.
func (c Class) Code() string { return c.ID.Hex() }

// HasStudent reports whether the (student, parent) pair is on the roster.
func (c Class) HasStudent(s ClassStudent) bool {
	for _, cur := range c.Students {
		if cur.StudentID == s.StudentID && cur.ParentID == s.ParentID {
			return true
		}
	}
	return false
}

// ParentIDs returns the distinct parent ids on the roster in roster order.
func (c Class) ParentIDs() []string {
	seen := make(map[string]struct{}, len(c.Students))
	out := make([]string, 0, len(c.Students))
	for _, s := range c.Students {
		if _, ok := seen[s.ParentID]; ok {
			continue
		}
		seen[s.ParentID] = struct{}{}
		out = append(out, s.ParentID)
	}
	return out
}

// FindContent returns the content entry identified by (externalID, addedAt).
func (c Class) FindContent(externalID string, addedAt time.Time) (ContentItem, bool) {
	for _, it := range c.Content {
		if it.Matches(externalID, addedAt) {
			return it, true
		}
	}
	return ContentItem{}, false
}
