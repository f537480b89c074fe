package classcontent_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/dalemusser/zozokid/internal/app/services/channels"
	"github.com/dalemusser/zozokid/internal/app/services/classcontent"
	"github.com/dalemusser/zozokid/internal/app/system/authz"
	"github.com/dalemusser/zozokid/internal/app/system/youtube"
	"github.com/dalemusser/zozokid/internal/domain/models"
	"github.com/dalemusser/zozokid/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeResolver serves fixed video sets and counts calls.
type fakeResolver struct {
	videos   map[string]youtube.Video
	channels map[string][]youtube.Video
	calls    int
	err      error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{videos: map[string]youtube.Video{}, channels: map[string][]youtube.Video{}}
}

func (f *fakeResolver) Resolve(_ context.Context, ref models.ContentRef) (channels.Resolution, error) {
	f.calls++
	if f.err != nil {
		return channels.Resolution{}, f.err
	}
	if ref.IsChannel() {
		vids, ok := f.channels[ref.ExternalID]
		if !ok {
			return channels.Resolution{}, youtube.ErrNotFound
		}
		res := channels.Resolution{Ref: ref, Videos: vids}
		if len(vids) > 0 {
			res.Title = vids[0].ChannelTitle
		}
		return res, nil
	}
	v, ok := f.videos[ref.ExternalID]
	if !ok {
		return channels.Resolution{}, youtube.ErrNotFound
	}
	return channels.Resolution{Ref: ref, Videos: []youtube.Video{v}, Title: v.Title}, nil
}

func queuePairs(t *testing.T, ctx context.Context, db *mongo.Database) []string {
	t.Helper()
	cur, err := db.Collection("video_queue").Find(ctx, bson.M{})
	if err != nil {
		t.Fatalf("find queue: %v", err)
	}
	var rows []models.VideoQueueEntry
	if err := cur.All(ctx, &rows); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ParentID+"/"+r.VideoID)
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type env struct {
	db       *mongo.Database
	fx       *testutil.Fixtures
	engine   *classcontent.Engine
	resolver *fakeResolver
	teacher  authz.Actor
}

func setup(t *testing.T) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	r := newFakeResolver()
	return &env{
		db:       db,
		fx:       testutil.NewFixtures(t, db),
		engine:   classcontent.New(db, r, zap.NewNop()),
		resolver: r,
		teacher:  authz.Teacher("teacher-1"),
	}, ctx
}

func TestAddContent_Scenario(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.videos["v1"] = youtube.Video{ID: "v1", Title: "T"}

	s1 := e.fx.CreateChildProfile(ctx, "P1", "S1")
	s2 := e.fx.CreateChildProfile(ctx, "P2", "S2")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(s1), testutil.StudentOf(s2))

	res, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.VideoRef("v1"), classcontent.Display{})
	if err != nil {
		t.Fatalf("AddContent: %v", err)
	}
	if res.Videos != 1 || res.ParentsAffected != 2 {
		t.Errorf("result = %+v, want 1 video, 2 parents", res)
	}
	if got := queuePairs(t, ctx, e.db); !equal(got, []string{"P1/v1", "P2/v1"}) {
		t.Errorf("queue = %v", got)
	}

	cur, _ := e.engine.GetClass(ctx, e.teacher, class.ID)
	if len(cur.Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(cur.Content))
	}
	it := cur.Content[0]
	if it.Type != models.ContentVideo || it.ExternalID != "v1" || it.Title != "T" {
		t.Errorf("item = %+v", it)
	}
	if !it.AddedAt.Equal(res.Item.AddedAt) {
		t.Errorf("stored AddedAt %v != returned %v", it.AddedAt, res.Item.AddedAt)
	}
}

func TestAddContent_ParentWithTwoChildrenGetsOneEntry(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.channels["UC1"] = []youtube.Video{{ID: "a"}, {ID: "b"}}

	c1 := e.fx.CreateChildProfile(ctx, "P1", "Twin A")
	c2 := e.fx.CreateChildProfile(ctx, "P1", "Twin B")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(c1), testutil.StudentOf(c2))

	res, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.ChannelRef("UC1"), classcontent.Display{Title: "Science"})
	if err != nil {
		t.Fatalf("AddContent: %v", err)
	}
	if res.ParentsAffected != 1 {
		t.Errorf("ParentsAffected = %d, want 1", res.ParentsAffected)
	}
	if got := queuePairs(t, ctx, e.db); !equal(got, []string{"P1/a", "P1/b"}) {
		t.Errorf("queue = %v", got)
	}
	if res.Item.Title != "Science" {
		t.Errorf("display title not used: %q", res.Item.Title)
	}
}

func TestAddContent_NoStudentsMakesNoCalls(t *testing.T) {
	e, ctx := setup(t)
	class := e.fx.CreateClass(ctx, "Empty", e.teacher.ID)

	_, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.ChannelRef("UC1"), classcontent.Display{})
	if !errors.Is(err, classcontent.ErrNoStudents) {
		t.Fatalf("err = %v, want ErrNoStudents", err)
	}
	if e.resolver.calls != 0 {
		t.Errorf("resolver calls = %d, want 0", e.resolver.calls)
	}
}

func TestAddContent_NoEligibleVideosWritesNothing(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.channels["UC-long"] = nil
	child := e.fx.CreateChildProfile(ctx, "P1", "Ada")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(child))

	_, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.ChannelRef("UC-long"), classcontent.Display{})
	if !errors.Is(err, classcontent.ErrNoEligibleVideos) {
		t.Fatalf("err = %v, want ErrNoEligibleVideos", err)
	}
	if got := queuePairs(t, ctx, e.db); len(got) != 0 {
		t.Errorf("queue = %v, want empty", got)
	}
	cur, _ := e.engine.GetClass(ctx, e.teacher, class.ID)
	if len(cur.Content) != 0 || cur.Version != 0 {
		t.Errorf("class mutated: content=%d version=%d", len(cur.Content), cur.Version)
	}
}

func TestAddContent_UpstreamErrorWritesNothing(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.err = &youtube.UpstreamError{Op: "channels.list", Status: 403, Message: "quota"}
	child := e.fx.CreateChildProfile(ctx, "P1", "Ada")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(child))

	_, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.ChannelRef("UC1"), classcontent.Display{})
	var ue *youtube.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if got := queuePairs(t, ctx, e.db); len(got) != 0 {
		t.Errorf("queue = %v, want empty", got)
	}
}

func TestAddContent_Authorization(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.videos["v1"] = youtube.Video{ID: "v1"}
	child := e.fx.CreateChildProfile(ctx, "P1", "Ada")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(child))

	for _, actor := range []authz.Actor{authz.Teacher("someone-else"), authz.Parent("P1")} {
		_, err := e.engine.AddContent(ctx, actor, class.ID, models.VideoRef("v1"), classcontent.Display{})
		if !errors.Is(err, classcontent.ErrForbidden) {
			t.Errorf("actor %+v: err = %v, want ErrForbidden", actor, err)
		}
	}
}

func TestAddThenRemove_RoundTrip(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.channels["UC1"] = []youtube.Video{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	e.resolver.videos["solo"] = youtube.Video{ID: "solo", Title: "Solo"}

	s1 := e.fx.CreateChildProfile(ctx, "P1", "S1")
	s2 := e.fx.CreateChildProfile(ctx, "P2", "S2")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(s1), testutil.StudentOf(s2))

	// Pre-existing state that must survive the round trip.
	e.fx.CreateQueueEntry(ctx, "P1", "own-video")
	if _, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.VideoRef("solo"), classcontent.Display{}); err != nil {
		t.Fatalf("AddContent solo: %v", err)
	}
	before := queuePairs(t, ctx, e.db)
	beforeClass, _ := e.engine.GetClass(ctx, e.teacher, class.ID)

	added, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.ChannelRef("UC1"), classcontent.Display{})
	if err != nil {
		t.Fatalf("AddContent channel: %v", err)
	}
	// The channel changes upstream before removal; the snapshot still wins.
	e.resolver.channels["UC1"] = []youtube.Video{{ID: "a"}, {ID: "new"}}

	if _, err := e.engine.RemoveContent(ctx, e.teacher, class.ID, added.Item.ExternalID, added.Item.AddedAt); err != nil {
		t.Fatalf("RemoveContent: %v", err)
	}

	if after := queuePairs(t, ctx, e.db); !equal(after, before) {
		t.Errorf("queue after round trip = %v, want %v", after, before)
	}
	afterClass, _ := e.engine.GetClass(ctx, e.teacher, class.ID)
	if len(afterClass.Content) != len(beforeClass.Content) || afterClass.Content[0].ExternalID != "solo" {
		t.Errorf("ledger after round trip = %+v", afterClass.Content)
	}
}

func TestRemoveContent_OnlyMatchingEntry(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.videos["v1"] = youtube.Video{ID: "v1"}
	child := e.fx.CreateChildProfile(ctx, "P1", "Ada")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(child))

	first, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.VideoRef("v1"), classcontent.Display{})
	if err != nil {
		t.Fatalf("AddContent: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := e.engine.AddContent(ctx, e.teacher, class.ID, models.VideoRef("v1"), classcontent.Display{})
	if err != nil {
		t.Fatalf("AddContent: %v", err)
	}

	if _, err := e.engine.RemoveContent(ctx, e.teacher, class.ID, "v1", first.Item.AddedAt); err != nil {
		t.Fatalf("RemoveContent: %v", err)
	}
	cur, _ := e.engine.GetClass(ctx, e.teacher, class.ID)
	if len(cur.Content) != 1 || !cur.Content[0].AddedAt.Equal(second.Item.AddedAt) {
		t.Errorf("remaining content = %+v", cur.Content)
	}

	_, err = e.engine.RemoveContent(ctx, e.teacher, class.ID, "v1", first.Item.AddedAt)
	if !errors.Is(err, classcontent.ErrContentNotFound) {
		t.Errorf("second removal err = %v, want ErrContentNotFound", err)
	}
}

func TestRemoveContent_LegacyChannelReResolves(t *testing.T) {
	e, ctx := setup(t)
	e.resolver.channels["UC1"] = []youtube.Video{{ID: "a"}, {ID: "b"}}
	child := e.fx.CreateChildProfile(ctx, "P1", "Ada")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(child))

	// An entry written without a snapshot.
	at := models.StampAddedAt(time.Now())
	_, err := e.db.Collection("classes").UpdateByID(ctx, class.ID, bson.M{"$push": bson.M{"content": models.ContentItem{
		Type: models.ContentChannel, ExternalID: "UC1", Title: "Legacy", AddedAt: at,
	}}})
	if err != nil {
		t.Fatal(err)
	}
	e.fx.CreateQueueEntry(ctx, "P1", "a")
	e.fx.CreateQueueEntry(ctx, "P1", "b")

	res, err := e.engine.RemoveContent(ctx, e.teacher, class.ID, "UC1", at)
	if err != nil {
		t.Fatalf("RemoveContent: %v", err)
	}
	if e.resolver.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", e.resolver.calls)
	}
	if res.QueueChanges != 2 {
		t.Errorf("QueueChanges = %d, want 2", res.QueueChanges)
	}
}

func TestRemoveContent_LegacyVideoSkipsResolver(t *testing.T) {
	e, ctx := setup(t)
	child := e.fx.CreateChildProfile(ctx, "P1", "Ada")
	class := e.fx.CreateClass(ctx, "C", e.teacher.ID, testutil.StudentOf(child))

	at := models.StampAddedAt(time.Now())
	_, err := e.db.Collection("classes").UpdateByID(ctx, class.ID, bson.M{"$push": bson.M{"content": models.ContentItem{
		Type: models.ContentVideo, ExternalID: "v9", Title: "Legacy", AddedAt: at,
	}}})
	if err != nil {
		t.Fatal(err)
	}
	e.fx.CreateQueueEntry(ctx, "P1", "v9")

	res, err := e.engine.RemoveContent(ctx, e.teacher, class.ID, "v9", at)
	if err != nil {
		t.Fatalf("RemoveContent: %v", err)
	}
	if e.resolver.calls != 0 {
		t.Errorf("resolver calls = %d, want 0", e.resolver.calls)
	}
	if res.QueueChanges != 1 {
		t.Errorf("QueueChanges = %d, want 1", res.QueueChanges)
	}
}

func TestCreateAndListClasses(t *testing.T) {
	e, ctx := setup(t)

	if _, err := e.engine.CreateClass(ctx, authz.Parent("P1"), "Nope", ""); !errors.Is(err, classcontent.ErrForbidden) {
		t.Errorf("parent CreateClass err = %v, want ErrForbidden", err)
	}
	if _, err := e.engine.CreateClass(ctx, e.teacher, "  <b></b> ", ""); !errors.Is(err, classcontent.ErrInvalidName) {
		t.Errorf("blank name err = %v, want ErrInvalidName", err)
	}

	for _, name := range []string{"Zebras", "Ants"} {
		if _, err := e.engine.CreateClass(ctx, e.teacher, name, "https://img/x.png"); err != nil {
			t.Fatalf("CreateClass: %v", err)
		}
	}
	list, err := e.engine.ListClasses(ctx, e.teacher)
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Ants" {
		t.Errorf("list = %+v", list)
	}
}
