package source

import (
	"context"
)

// Client is one authenticated source identity. All methods may return
// ErrRateLimited or a generic transient error; callers go through the fetch
// guard rather than calling a Client directly.
type Client interface {
	// Identity names the source account behind this client, for logging.
	Identity() string

	RecentPosts(ctx context.Context, creator string, count int) ([]Post, error)
	ActiveStories(ctx context.Context, creator string) ([]Story, error)
	FetchMedia(ctx context.Context, ref MediaRef) (Media, error)
	Profile(ctx context.Context, creator string) (*Profile, error)
}
