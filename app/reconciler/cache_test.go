package reconciler

import (
	"testing"
	"time"

	"github.com/grammirror/gram-mirror/app/source"
)

func TestProfileCacheFreshEntryIsReturned(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewProfileCache(DefaultProfileTTL).WithClock(func() time.Time { return now })

	cache.Put("alice", CachedProfile{Profile: source.Profile{Creator: "alice", FollowerCount: 10}})

	now = now.Add(299 * time.Second)
	cached, ok := cache.Get("alice")
	if !ok {
		t.Fatal("Expected fresh entry to be returned")
	}
	if cached.Profile.FollowerCount != 10 {
		t.Errorf("Expected follower count 10, got %d", cached.Profile.FollowerCount)
	}
}

func TestProfileCacheStaleEntryIsAbsent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewProfileCache(DefaultProfileTTL).WithClock(func() time.Time { return now })

	cache.Put("alice", CachedProfile{Profile: source.Profile{Creator: "alice"}})

	now = now.Add(300 * time.Second)
	if _, ok := cache.Get("alice"); ok {
		t.Error("Expected stale entry to be reported absent")
	}
}

func TestProfileCacheMissingCreator(t *testing.T) {
	cache := NewProfileCache(DefaultProfileTTL)

	if _, ok := cache.Get("nobody"); ok {
		t.Error("Expected miss for unknown creator")
	}
}
