package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientRecentPosts(t *testing.T) {
	var gotPath, gotQuery, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "abc", "taken_at": "2024-05-30T10:00:00Z", "caption": "sunset", "pinned": false,
			 "like_count": 5, "comment_count": 2, "media": [{"url": "http://x/1.jpg", "filename": "1.jpg"}]},
			{"id": "def", "taken_at": null, "pinned": true}
		]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok-1", "identity-1", "test-agent", server.Client())

	posts, err := client.RecentPosts(context.Background(), "alice", 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotPath != "/users/alice/posts" {
		t.Errorf("Expected posts path, got %s", gotPath)
	}
	if gotQuery != "count=3" {
		t.Errorf("Expected count query, got %s", gotQuery)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Expected bearer token, got %s", gotAuth)
	}

	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "abc" || posts[0].Creator != "alice" {
		t.Errorf("Expected post abc for alice, got %+v", posts[0])
	}
	if posts[0].TakenAt == nil {
		t.Error("Expected taken_at to be parsed")
	}
	if posts[0].LikeCount != 5 || posts[0].CommentCount != 2 {
		t.Errorf("Expected engagement stats, got %+v", posts[0])
	}
	if len(posts[0].Media) != 1 || posts[0].Media[0].Filename != "1.jpg" {
		t.Errorf("Expected 1 media ref, got %+v", posts[0].Media)
	}
	if !posts[1].Pinned {
		t.Error("Expected second post to be pinned")
	}
	if posts[1].TakenAt != nil {
		t.Error("Expected null taken_at to stay nil")
	}
}

func TestHTTPClientActiveStories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/alice/stories" {
			t.Errorf("Expected stories path, got %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id": "s1", "taken_at": "2024-05-30T09:00:00Z"}]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok-1", "identity-1", "test-agent", server.Client())

	stories, err := client.ActiveStories(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(stories) != 1 || stories[0].ID != "s1" {
		t.Fatalf("Expected story s1, got %+v", stories)
	}
}

func TestHTTPClientProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/alice" {
			t.Errorf("Expected profile path, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"username": "alice", "full_name": "Alice", "biography": "hi",
			"follower_count": 100, "following_count": 50, "avatar_url": "http://x/a.jpg"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok-1", "identity-1", "test-agent", server.Client())

	profile, err := client.Profile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if profile.Creator != "alice" || profile.FollowerCount != 100 {
		t.Errorf("Expected alice with 100 followers, got %+v", profile)
	}
}

func TestHTTPClientRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok-1", "identity-1", "test-agent", server.Client())

	_, err := client.RecentPosts(context.Background(), "alice", 3)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}

func TestHTTPClientFetchMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok-1", "identity-1", "test-agent", server.Client())

	media, err := client.FetchMedia(context.Background(), MediaRef{URL: server.URL + "/1.jpg", Filename: "1.jpg"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(media.Data) != "image-bytes" || media.Filename != "1.jpg" {
		t.Errorf("Expected media payload, got %+v", media)
	}
}
