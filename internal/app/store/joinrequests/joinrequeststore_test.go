package joinrequeststore_test

import (
	"errors"
	"testing"

	joinrequeststore "github.com/dalemusser/zozokid/internal/app/store/joinrequests"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/dalemusser/zozokid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newRequest(class models.Class, child models.ChildProfile) models.ClassJoinRequest {
	return models.ClassJoinRequest{
		ClassID:        class.ID,
		TeacherID:      class.TeacherID,
		ParentID:       child.ParentID,
		ChildProfileID: child.ID,
		ChildName:      child.Name,
		Viewers:        []string{child.ParentID, class.TeacherID},
	}
}

func TestStore_CreateAndTransition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := joinrequeststore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	class := fixtures.CreateClass(ctx, "Room 4", "teacher-1")
	child := fixtures.CreateChildProfile(ctx, "parent-1", "Ada")

	req, err := store.Create(ctx, newRequest(class, child))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Errorf("Status = %q, want pending", req.Status)
	}

	updated, err := store.Transition(ctx, req.ID, models.RequestApproved, "teacher-1")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if updated.Status != models.RequestApproved || updated.ResolvedAt == nil || updated.ResolvedBy != "teacher-1" {
		t.Errorf("updated = %+v", updated)
	}

	_, err = store.Transition(ctx, req.ID, models.RequestDenied, "teacher-1")
	if !errors.Is(err, joinrequeststore.ErrNotPending) {
		t.Errorf("second transition err = %v, want ErrNotPending", err)
	}
	got, _ := store.GetByID(ctx, req.ID)
	if got.Status != models.RequestApproved {
		t.Errorf("status after rejected transition = %q, want approved", got.Status)
	}

	_, err = store.Transition(ctx, primitive.NewObjectID(), models.RequestApproved, "teacher-1")
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("unknown id err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_ListPendingAndDistinct(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := joinrequeststore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	class := fixtures.CreateClass(ctx, "Room 4", "teacher-1")
	ada := fixtures.CreateChildProfile(ctx, "parent-1", "Ada")
	bo := fixtures.CreateChildProfile(ctx, "parent-2", "Bo")
	fixtures.CreateJoinRequest(ctx, class, ada, models.RequestPending)
	fixtures.CreateJoinRequest(ctx, class, bo, models.RequestDenied)

	pending, err := store.ListPendingByClass(ctx, class.ID)
	if err != nil {
		t.Fatalf("ListPendingByClass failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ChildProfileID != ada.ID {
		t.Errorf("pending = %+v", pending)
	}

	ids, err := store.ChildProfileIDsByClass(ctx, class.ID)
	if err != nil {
		t.Fatalf("ChildProfileIDsByClass failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("child ids = %v, want 2", ids)
	}
	parents, err := store.ParentIDsByClass(ctx, class.ID)
	if err != nil {
		t.Fatalf("ParentIDsByClass failed: %v", err)
	}
	if len(parents) != 2 {
		t.Errorf("parent ids = %v, want 2", parents)
	}

	other := fixtures.CreateClass(ctx, "Room 5", "teacher-1")
	has, err := store.HasPendingWithTeacher(ctx, "teacher-1", ada.ID, other.ID)
	if err != nil || !has {
		t.Errorf("HasPendingWithTeacher = %v, %v; want true", has, err)
	}
	has, _ = store.HasPendingWithTeacher(ctx, "teacher-1", ada.ID, class.ID)
	if has {
		t.Error("HasPendingWithTeacher excluding the only class should be false")
	}

	n, err := store.DeleteByClass(ctx, class.ID)
	if err != nil || n != 2 {
		t.Errorf("DeleteByClass = %d, %v; want 2", n, err)
	}
}
