package classstore_test

import (
	"errors"
	"testing"
	"time"

	classstore "github.com/dalemusser/zozokid/internal/app/store/classes"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/dalemusser/zozokid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Class{Name: "Room 4", TeacherID: "teacher-1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Status != models.ClassActive {
		t.Errorf("Status = %q, want active", created.Status)
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if created.Code() != created.ID.Hex() {
		t.Errorf("Code = %q, want %q", created.Code(), created.ID.Hex())
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Students == nil || got.Content == nil {
		t.Error("expected empty roster and ledger to round-trip as empty arrays")
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_AppendAndPullContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	class := fixtures.CreateClass(ctx, "Room 4", "teacher-1")
	at := time.Now()

	first := models.ContentItem{Type: models.ContentVideo, ExternalID: "v1", Title: "One", AddedAt: at}
	second := models.ContentItem{Type: models.ContentVideo, ExternalID: "v1", Title: "One again", AddedAt: at.Add(time.Second)}
	for _, it := range []models.ContentItem{first, second} {
		if err := store.AppendContent(ctx, class.ID, it); err != nil {
			t.Fatalf("AppendContent failed: %v", err)
		}
	}

	// Nanosecond input must still match the stored millisecond value.
	removed, err := store.PullContent(ctx, class.ID, "v1", at)
	if err != nil {
		t.Fatalf("PullContent failed: %v", err)
	}
	if !removed {
		t.Fatal("expected entry to be removed")
	}

	got, _ := store.GetByID(ctx, class.ID)
	if len(got.Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(got.Content))
	}
	if got.Content[0].Title != "One again" {
		t.Errorf("wrong entry removed; remaining %+v", got.Content[0])
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want 3", got.Version)
	}

	removed, err = store.PullContent(ctx, class.ID, "v1", at)
	if err != nil {
		t.Fatalf("PullContent failed: %v", err)
	}
	if removed {
		t.Error("second pull of the same entry should remove nothing")
	}
}

func TestStore_AppendContent_DeletingClass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	class := fixtures.CreateClass(ctx, "Room 4", "teacher-1")
	if ok, err := store.SetStatus(ctx, class.ID, models.ClassActive, models.ClassDeleting); err != nil || !ok {
		t.Fatalf("SetStatus = %v, %v", ok, err)
	}
	err := store.AppendContent(ctx, class.ID, models.ContentItem{ExternalID: "v1", AddedAt: time.Now()})
	if !errors.Is(err, classstore.ErrNotActive) {
		t.Errorf("err = %v, want ErrNotActive", err)
	}
	if ok, _ := store.SetStatus(ctx, class.ID, models.ClassActive, models.ClassDeleting); ok {
		t.Error("SetStatus from the wrong status should not match")
	}
}

func TestStore_AddStudent_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	class := fixtures.CreateClass(ctx, "Room 4", "teacher-1")
	st := models.ClassStudent{StudentID: primitive.NewObjectID(), ParentID: "parent-1"}

	added, err := store.AddStudent(ctx, class.ID, st)
	if err != nil || !added {
		t.Fatalf("first AddStudent = %v, %v", added, err)
	}
	added, err = store.AddStudent(ctx, class.ID, st)
	if err != nil {
		t.Fatalf("second AddStudent failed: %v", err)
	}
	if added {
		t.Error("second AddStudent should be a no-op")
	}

	got, _ := store.GetByID(ctx, class.ID)
	if len(got.Students) != 1 || !got.HasStudent(st) {
		t.Errorf("roster = %+v", got.Students)
	}
}

func TestStore_ListByStudentAndTeacherHasStudent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	child := fixtures.CreateChildProfile(ctx, "parent-1", "Ada")
	a := fixtures.CreateClass(ctx, "B class", "teacher-1", testutil.StudentOf(child))
	b := fixtures.CreateClass(ctx, "A class", "teacher-1", testutil.StudentOf(child))
	fixtures.CreateClass(ctx, "Other", "teacher-1")

	classes, err := store.ListByStudent(ctx, child.ID)
	if err != nil {
		t.Fatalf("ListByStudent failed: %v", err)
	}
	if len(classes) != 2 || classes[0].ID != b.ID || classes[1].ID != a.ID {
		t.Errorf("ListByStudent = %+v", classes)
	}

	has, err := store.TeacherHasStudent(ctx, "teacher-1", child.ID, a.ID)
	if err != nil || !has {
		t.Errorf("TeacherHasStudent excluding a = %v, %v; want true", has, err)
	}
	if _, err := store.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	has, _ = store.TeacherHasStudent(ctx, "teacher-1", child.ID, a.ID)
	if has {
		t.Error("TeacherHasStudent should be false once the only other class is gone")
	}
}

func TestStore_Touch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := classstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := store.Create(ctx, models.Class{Name: "Room 4", TeacherID: "teacher-1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Touch(ctx, c.ID); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	got, _ := store.GetByID(ctx, c.ID)
	if got.Version != c.Version+1 {
		t.Errorf("Version = %d, want %d", got.Version, c.Version+1)
	}

	if _, err := store.SetStatus(ctx, c.ID, models.ClassActive, models.ClassDeleting); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if err := store.Touch(ctx, c.ID); !errors.Is(err, classstore.ErrNotActive) {
		t.Errorf("Touch on deleting class: err = %v, want ErrNotActive", err)
	}
	if err := store.Touch(ctx, primitive.NewObjectID()); !errors.Is(err, classstore.ErrNotActive) {
		t.Errorf("Touch on missing class: err = %v, want ErrNotActive", err)
	}
}
