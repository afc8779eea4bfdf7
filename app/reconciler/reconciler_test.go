package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/sink"
	"github.com/grammirror/gram-mirror/app/source"
)

func testClock() func() time.Time {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return fixed }
}

func at(hour int) *time.Time {
	t := time.Date(2024, 5, 30, hour, 0, 0, 0, time.UTC)
	return &t
}

func newTestReconciler(fetcher *fakeFetcher, s *fakeSink) (*Reconciler, *memHistoryRepo) {
	repo := newMemHistoryRepo()
	r := New(repo, fetcher, NewDispatcher(s)).WithClock(testClock())
	return r, repo
}

func TestCheckPostsNotifiesNewPost(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "abc", Creator: "alice", TakenAt: at(10), Caption: "hello", LikeCount: 5, CommentCount: 2,
			Media: []source.MediaRef{{URL: "http://x/1.jpg", Filename: "1.jpg"}}},
	}}
	s := newFakeSink()
	r, repo := newTestReconciler(fetcher, s)

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.sends) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(s.sends))
	}
	if s.sends[0].channelID != "chan-1" {
		t.Errorf("Expected send to chan-1, got %s", s.sends[0].channelID)
	}
	if s.sends[0].payload.ItemID != "abc" {
		t.Errorf("Expected item abc, got %s", s.sends[0].payload.ItemID)
	}
	if len(s.sends[0].payload.Media) != 1 {
		t.Errorf("Expected 1 media attachment, got %d", len(s.sends[0].payload.Media))
	}

	h := repo.Load("alice", history.KindPost)
	entry := h.Find("abc")
	if entry == nil {
		t.Fatal("Expected entry for abc in history")
	}
	if !entry.DeliveredTo("chan-1") {
		t.Error("Expected delivery record for chan-1")
	}
	if entry.MessageIDs["chan-1"] == "" {
		t.Error("Expected message id recorded for chan-1")
	}
	if h.Latest == nil || h.Latest.ItemID != "abc" {
		t.Errorf("Expected latest pointer abc, got %+v", h.Latest)
	}
}

func TestCheckPostsFiltersPinnedAndSelectsNewerSecond(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "pinned", Creator: "alice", TakenAt: at(23), Pinned: true},
		{ID: "older", Creator: "alice", TakenAt: at(10)},
		{ID: "newer", Creator: "alice", TakenAt: at(12)},
	}}
	s := newFakeSink()
	r, _ := newTestReconciler(fetcher, s)

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.sends) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(s.sends))
	}
	if s.sends[0].payload.ItemID != "newer" {
		t.Errorf("Expected newer to be selected, got %s", s.sends[0].payload.ItemID)
	}

	// An unchanged second pass must be a no-op.
	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(s.sends) != 1 || len(s.edits) != 0 {
		t.Errorf("Expected no activity on unchanged second pass, got %d sends, %d edits", len(s.sends), len(s.edits))
	}
}

func TestCheckPostsEqualTimestampsKeepFirst(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "first", Creator: "alice", TakenAt: at(10)},
		{ID: "second", Creator: "alice", TakenAt: at(10)},
	}}
	s := newFakeSink()
	r, _ := newTestReconciler(fetcher, s)

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.sends) != 1 || s.sends[0].payload.ItemID != "first" {
		t.Fatalf("Expected first to be selected, got %+v", s.sends)
	}
}

func TestCheckPostsDeliveredPostIsNotResent(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "abc", Creator: "alice", TakenAt: at(10)},
	}}
	s := newFakeSink()
	r, _ := newTestReconciler(fetcher, s)

	for i := 0; i < 2; i++ {
		if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if len(s.sends) != 1 {
		t.Errorf("Expected 1 send across both passes, got %d", len(s.sends))
	}
}

func TestCheckPostsKnownPostIsNewForOtherChannel(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "abc", Creator: "alice", TakenAt: at(10)},
	}}
	s := newFakeSink()
	r, _ := newTestReconciler(fetcher, s)

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := r.CheckPosts(context.Background(), "chan-2", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.sends) != 2 {
		t.Fatalf("Expected 2 sends, got %d", len(s.sends))
	}
	if s.sends[1].channelID != "chan-2" {
		t.Errorf("Expected second send to chan-2, got %s", s.sends[1].channelID)
	}
}

func TestCheckPostsDetectsDeletedPost(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "gone", Creator: "alice", TakenAt: at(8)},
	}}
	s := newFakeSink()
	r, repo := newTestReconciler(fetcher, s)

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	h := repo.Load("alice", history.KindPost)
	ref := sink.MessageRef{ChannelID: "chan-1", MessageID: h.Find("gone").MessageIDs["chan-1"]}
	s.bodies[ref] = "New Instagram Post"

	fetcher.posts = []source.Post{{ID: "other", Creator: "alice", TakenAt: at(9)}}
	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.edits) != 1 {
		t.Fatalf("Expected 1 edit, got %d", len(s.edits))
	}
	if s.edits[0].payload.Notice != sink.DeletedNotice {
		t.Errorf("Expected deleted notice, got %q", s.edits[0].payload.Notice)
	}

	h = repo.Load("alice", history.KindPost)
	entry := h.Find("gone")
	if entry == nil || !entry.MarkedDeleted {
		t.Fatal("Expected gone to be marked deleted")
	}
	if entry.DeletedAt == "" {
		t.Error("Expected deletion timestamp to be recorded")
	}

	// A further pass must not notify again.
	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(s.edits) != 1 {
		t.Errorf("Expected no additional edits, got %d", len(s.edits))
	}
}

func TestCheckPostsFetchFailureSkipsPass(t *testing.T) {
	fetcher := &fakeFetcher{postsErr: errors.New("upstream down")}
	s := newFakeSink()
	r, repo := newTestReconciler(fetcher, s)
	repo.histories["alice/post"] = history.CreatorHistory{Entries: []history.Entry{
		{ItemID: "kept", Timestamp: "2024-05-30 08:00:00 UTC",
			ChannelIDs: []string{"chan-1"}, MessageIDs: map[string]string{"chan-1": "m1"}},
	}}

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.sends) != 0 || len(s.edits) != 0 {
		t.Error("Expected no sink activity on fetch failure")
	}
	if repo.saveCount != 0 {
		t.Errorf("Expected no history writes on fetch failure, got %d", repo.saveCount)
	}
	h := repo.Load("alice", history.KindPost)
	if h.Find("kept").MarkedDeleted {
		t.Error("Expected fetch failure not to mark entries deleted")
	}
}

func TestCheckPostsEmptyFetchStillDetectsDeletions(t *testing.T) {
	fetcher := &fakeFetcher{posts: nil}
	s := newFakeSink()
	r, repo := newTestReconciler(fetcher, s)
	ref := sink.MessageRef{ChannelID: "chan-1", MessageID: "m1"}
	s.bodies[ref] = "New Instagram Post"
	repo.histories["alice/post"] = history.CreatorHistory{Entries: []history.Entry{
		{ItemID: "kept", Timestamp: "2024-05-30 08:00:00 UTC",
			ChannelIDs: []string{"chan-1"}, MessageIDs: map[string]string{"chan-1": "m1"}},
	}}

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.edits) != 1 {
		t.Fatalf("Expected 1 edit, got %d", len(s.edits))
	}
	h := repo.Load("alice", history.KindPost)
	if !h.Find("kept").MarkedDeleted {
		t.Error("Expected kept to be marked deleted")
	}
}

func TestCheckPostsSendFailureRetriedNextPass(t *testing.T) {
	fetcher := &fakeFetcher{posts: []source.Post{
		{ID: "abc", Creator: "alice", TakenAt: at(10)},
	}}
	s := newFakeSink()
	s.sendErr = errors.New("channel unavailable")
	r, repo := newTestReconciler(fetcher, s)

	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	h := repo.Load("alice", history.KindPost)
	entry := h.Find("abc")
	if entry == nil {
		t.Fatal("Expected entry to be recorded despite send failure")
	}
	if entry.DeliveredTo("chan-1") {
		t.Error("Expected no delivery record after failed send")
	}

	s.sendErr = nil
	if err := r.CheckPosts(context.Background(), "chan-1", "alice", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(s.sends) != 1 {
		t.Fatalf("Expected retry to send once, got %d", len(s.sends))
	}
	h = repo.Load("alice", history.KindPost)
	if !h.Find("abc").DeliveredTo("chan-1") {
		t.Error("Expected delivery record after successful retry")
	}
}

func TestCheckStoriesNotifiesAllNewStories(t *testing.T) {
	fetcher := &fakeFetcher{stories: []source.Story{
		{ID: "s1", Creator: "alice", TakenAt: at(9)},
		{ID: "s2", Creator: "alice", TakenAt: at(11)},
	}}
	s := newFakeSink()
	r, repo := newTestReconciler(fetcher, s)

	if err := r.CheckStories(context.Background(), "chan-1", "alice"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.sends) != 2 {
		t.Fatalf("Expected 2 sends, got %d", len(s.sends))
	}

	h := repo.Load("alice", history.KindStory)
	for _, id := range []string{"s1", "s2"} {
		entry := h.Find(id)
		if entry == nil || !entry.DeliveredTo("chan-1") {
			t.Errorf("Expected delivery record for %s", id)
		}
	}
	if h.Latest == nil || h.Latest.ItemID != "s2" {
		t.Errorf("Expected latest pointer s2, got %+v", h.Latest)
	}
}

func TestCheckStoriesDetectsExpiredStory(t *testing.T) {
	fetcher := &fakeFetcher{stories: []source.Story{
		{ID: "s1", Creator: "alice", TakenAt: at(9)},
	}}
	s := newFakeSink()
	r, repo := newTestReconciler(fetcher, s)

	if err := r.CheckStories(context.Background(), "chan-1", "alice"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	h := repo.Load("alice", history.KindStory)
	ref := sink.MessageRef{ChannelID: "chan-1", MessageID: h.Find("s1").MessageIDs["chan-1"]}
	s.bodies[ref] = "New Instagram Story"

	fetcher.stories = nil
	if err := r.CheckStories(context.Background(), "chan-1", "alice"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.edits) != 1 {
		t.Fatalf("Expected 1 edit, got %d", len(s.edits))
	}
	if s.edits[0].payload.Notice != sink.ExpiredNotice {
		t.Errorf("Expected expired notice, got %q", s.edits[0].payload.Notice)
	}
	h = repo.Load("alice", history.KindStory)
	entry := h.Find("s1")
	if !entry.Expired || entry.ExpiredAt == "" {
		t.Errorf("Expected expired flag and timestamp, got %+v", entry)
	}
}

func TestCheckStoriesExpiredFlagPersistsDespiteEditFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := newFakeSink()
	s.fetchErr = errors.New("sink down")
	r, repo := newTestReconciler(fetcher, s)
	repo.histories["alice/story"] = history.CreatorHistory{Entries: []history.Entry{
		{ItemID: "s1", Timestamp: "2024-05-30 09:00:00 UTC",
			ChannelIDs: []string{"chan-1"}, MessageIDs: map[string]string{"chan-1": "m1"}},
	}}

	if err := r.CheckStories(context.Background(), "chan-1", "alice"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.edits) != 0 {
		t.Errorf("Expected no edits, got %d", len(s.edits))
	}
	h := repo.Load("alice", history.KindStory)
	if !h.Find("s1").Expired {
		t.Error("Expected expired flag despite edit failure")
	}
}
