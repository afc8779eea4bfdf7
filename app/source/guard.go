package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Attempt caps per call type.
const (
	PostAttempts    = 3
	StoryAttempts   = 3
	ProfileAttempts = 3
	MediaAttempts   = 5
)

// SleepFunc waits for the given duration or until the context is done.
// Injectable so tests can run without wall-clock delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Guard wraps every source call with bounded retry, exponential backoff and
// identity rotation. A fresh identity is drawn from the pool on every
// attempt. Exhausting all attempts surfaces the last error; callers treat
// any error as "no result this pass" - the guard never panics a pass.
type Guard struct {
	pool      *Pool
	fileLimit int64
	sleep     SleepFunc
}

// NewGuard creates a fetch guard over the identity pool. fileLimit bounds
// downloaded media size (the sink's attachment ceiling).
func NewGuard(pool *Pool, fileLimit int64) *Guard {
	return &Guard{pool: pool, fileLimit: fileLimit, sleep: defaultSleep}
}

// WithSleep overrides the backoff sleep, for tests.
func (g *Guard) WithSleep(sleep SleepFunc) *Guard {
	g.sleep = sleep
	return g
}

// RecentPosts fetches the most recent posts for a creator, newest first.
func (g *Guard) RecentPosts(ctx context.Context, creator string, count int) ([]Post, error) {
	return retry(ctx, g, PostAttempts, "posts", creator, func(c Client) ([]Post, error) {
		return c.RecentPosts(ctx, creator, count)
	})
}

// ActiveStories fetches all currently active stories for a creator.
func (g *Guard) ActiveStories(ctx context.Context, creator string) ([]Story, error) {
	return retry(ctx, g, StoryAttempts, "stories", creator, func(c Client) ([]Story, error) {
		return c.ActiveStories(ctx, creator)
	})
}

// Profile fetches the public profile for a creator.
func (g *Guard) Profile(ctx context.Context, creator string) (*Profile, error) {
	return retry(ctx, g, ProfileAttempts, "profile", creator, func(c Client) (*Profile, error) {
		return c.Profile(ctx, creator)
	})
}

// ItemMedia downloads every media resource of an item. Payloads above the
// file limit are dropped from the result (logged, not fatal), and a resource
// that exhausts its retries is skipped rather than failing the item.
func (g *Guard) ItemMedia(ctx context.Context, creator string, refs []MediaRef) []Media {
	var media []Media
	for _, ref := range refs {
		m, err := retry(ctx, g, MediaAttempts, "media", creator, func(c Client) (Media, error) {
			return c.FetchMedia(ctx, ref)
		})
		if err != nil {
			slog.Warn("Skipping media resource after exhausted retries", "creator", creator, "filename", ref.Filename, "error", err)
			continue
		}
		if int64(len(m.Data)) > g.fileLimit {
			slog.Warn("Media exceeds sink file size limit, dropping", "creator", creator, "filename", m.Filename, "size", len(m.Data), "limit", g.fileLimit)
			continue
		}
		media = append(media, m)
	}
	return media
}

// backoffDelay is 2^attempt * 10 seconds, matching the source's throttle
// recovery window.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * 10 * time.Second
}

func retry[T any](ctx context.Context, g *Guard, attempts int, what, creator string, fn func(Client) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		client := g.pool.Next()
		result, err := fn(client)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrRateLimited) {
			slog.Warn("Source rate limit hit, rotating identity", "what", what, "creator", creator, "identity", client.Identity(), "attempt", attempt+1, "max_attempts", attempts)
		} else {
			slog.Warn("Source call failed", "what", what, "creator", creator, "identity", client.Identity(), "attempt", attempt+1, "max_attempts", attempts, "error", err)
		}

		if attempt < attempts-1 {
			if err := g.sleep(ctx, backoffDelay(attempt)); err != nil {
				return zero, err
			}
		}
	}

	slog.Warn("Exhausted source retries", "what", what, "creator", creator, "attempts", attempts)
	return zero, fmt.Errorf("%s fetch for %s failed after %d attempts: %w", what, creator, attempts, lastErr)
}
