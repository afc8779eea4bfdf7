package reconciler

import (
	"context"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/source"
)

// Fetcher is the guarded view of the content source the reconciler depends
// on. *source.Guard satisfies it.
type Fetcher interface {
	RecentPosts(ctx context.Context, creator string, count int) ([]source.Post, error)
	ActiveStories(ctx context.Context, creator string) ([]source.Story, error)
	ItemMedia(ctx context.Context, creator string, refs []source.MediaRef) []source.Media
	Profile(ctx context.Context, creator string) (*source.Profile, error)
}

// NewPostAction notifies a channel about a post it has not seen yet.
type NewPostAction struct {
	ChannelID string
	Post      source.Post
	Timestamp string
	Media     []source.Media
}

// DeletedPostAction flips a previously sent post notification into a
// deletion notice. Entry is the history snapshot carrying the message
// reference and last known engagement stats.
type DeletedPostAction struct {
	ChannelID string
	Creator   string
	Entry     history.Entry
}

// NewStoryAction notifies a channel about an active story it has not seen.
type NewStoryAction struct {
	ChannelID string
	Story     source.Story
	Timestamp string
	Media     []source.Media
}

// ExpiredStoryAction flips a previously sent story notification into an
// expiration notice.
type ExpiredStoryAction struct {
	ChannelID string
	Creator   string
	Entry     history.Entry
}

// PostActions is the normalized outcome of one post reconciliation pass.
type PostActions struct {
	New     *NewPostAction
	Deleted []DeletedPostAction
}

// StoryActions is the normalized outcome of one story reconciliation pass.
type StoryActions struct {
	New     []NewStoryAction
	Expired []ExpiredStoryAction
}
