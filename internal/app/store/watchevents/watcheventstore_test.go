package watcheventstore_test

import (
	"testing"
	"time"

	watcheventstore "github.com/dalemusser/zozokid/internal/app/store/watchevents"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/dalemusser/zozokid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_RecordAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := watcheventstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	child := primitive.NewObjectID()
	now := time.Now().UTC()
	for i, age := range []time.Duration{72 * time.Hour, time.Hour, 10 * 24 * time.Hour} {
		_, err := store.Record(ctx, models.WatchEvent{
			ParentID:             "parent-1",
			ChildProfileID:       child,
			VideoID:              "v" + string(rune('a'+i)),
			WatchDurationSeconds: 30,
			WatchedAt:            now.Add(-age),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	// Another parent's event for the same child id must not leak.
	if _, err := store.Record(ctx, models.WatchEvent{ParentID: "parent-2", ChildProfileID: child}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	all, err := store.ListByChild(ctx, "parent-1", child, time.Time{})
	if err != nil {
		t.Fatalf("ListByChild failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].VideoID != "vb" {
		t.Errorf("newest first: got %q, want vb", all[0].VideoID)
	}

	recent, err := store.ListByChild(ctx, "parent-1", child, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("ListByChild failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("recent len = %d, want 2", len(recent))
	}
}
