package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// httpClient talks to the content source API with a single identity token.
type httpClient struct {
	baseURL   string
	token     string
	identity  string
	userAgent string
	client    *http.Client
}

var _ Client = (*httpClient)(nil)

// NewHTTPClient creates a source client bound to one identity token.
func NewHTTPClient(baseURL, token, identity, userAgent string, client *http.Client) Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpClient{
		baseURL:   baseURL,
		token:     token,
		identity:  identity,
		userAgent: userAgent,
		client:    client,
	}
}

func (c *httpClient) Identity() string {
	return c.identity
}

// wire types for the source API

type wirePost struct {
	ID           string      `json:"id"`
	TakenAt      *time.Time  `json:"taken_at"`
	Caption      string      `json:"caption"`
	Pinned       bool        `json:"pinned"`
	LikeCount    int         `json:"like_count"`
	CommentCount int         `json:"comment_count"`
	Media        []wireMedia `json:"media"`
}

type wireStory struct {
	ID      string      `json:"id"`
	TakenAt *time.Time  `json:"taken_at"`
	Caption string      `json:"caption"`
	Media   []wireMedia `json:"media"`
}

type wireMedia struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type wireProfile struct {
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Biography      string `json:"biography"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	AvatarURL      string `json:"avatar_url"`
}

func (c *httpClient) RecentPosts(ctx context.Context, creator string, count int) ([]Post, error) {
	var wire []wirePost
	path := fmt.Sprintf("/users/%s/posts?count=%s", url.PathEscape(creator), strconv.Itoa(count))
	if err := c.getJSON(ctx, path, &wire); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(wire))
	for _, w := range wire {
		posts = append(posts, Post{
			ID:           w.ID,
			Creator:      creator,
			TakenAt:      w.TakenAt,
			Caption:      w.Caption,
			Pinned:       w.Pinned,
			LikeCount:    w.LikeCount,
			CommentCount: w.CommentCount,
			Media:        mediaRefs(w.Media),
		})
	}
	return posts, nil
}

func (c *httpClient) ActiveStories(ctx context.Context, creator string) ([]Story, error) {
	var wire []wireStory
	path := fmt.Sprintf("/users/%s/stories", url.PathEscape(creator))
	if err := c.getJSON(ctx, path, &wire); err != nil {
		return nil, err
	}

	stories := make([]Story, 0, len(wire))
	for _, w := range wire {
		stories = append(stories, Story{
			ID:      w.ID,
			Creator: creator,
			TakenAt: w.TakenAt,
			Caption: w.Caption,
			Media:   mediaRefs(w.Media),
		})
	}
	return stories, nil
}

func (c *httpClient) Profile(ctx context.Context, creator string) (*Profile, error) {
	var wire wireProfile
	path := fmt.Sprintf("/users/%s", url.PathEscape(creator))
	if err := c.getJSON(ctx, path, &wire); err != nil {
		return nil, err
	}

	return &Profile{
		Creator:        wire.Username,
		FullName:       wire.FullName,
		Biography:      wire.Biography,
		FollowerCount:  wire.FollowerCount,
		FollowingCount: wire.FollowingCount,
		AvatarURL:      wire.AvatarURL,
	}, nil
}

func (c *httpClient) FetchMedia(ctx context.Context, ref MediaRef) (Media, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", ref.URL, nil)
	if err != nil {
		return Media{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Media{}, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, resp.Status); err != nil {
		return Media{}, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Media{}, fmt.Errorf("failed to read media body: %w", err)
	}

	return Media{Data: data, Filename: ref.Filename}, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, resp.Status); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}

	return nil
}

func statusError(code int, status string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", status, ErrRateLimited)
	default:
		return fmt.Errorf("HTTP error: %d %s", code, status)
	}
}

func mediaRefs(wire []wireMedia) []MediaRef {
	if len(wire) == 0 {
		return nil
	}
	refs := make([]MediaRef, 0, len(wire))
	for _, m := range wire {
		refs = append(refs, MediaRef{URL: m.URL, Filename: m.Filename})
	}
	return refs
}
