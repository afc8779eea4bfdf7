package sink

import (
	"errors"

	"github.com/grammirror/gram-mirror/app/source"
)

// ErrNotFound signals that the target message no longer exists in the
// destination channel. Callers treat it as recoverable.
var ErrNotFound = errors.New("message not found")

// Terminal notices appended to a notification when the underlying item
// disappears. The dispatcher checks for their presence before editing, which
// makes terminal edits idempotent.
const (
	DeletedNotice = "**Deleted Post**: This post has been deleted."
	ExpiredNotice = "**Expired Story**: This story has expired."
)

// MessageRef identifies a previously sent notification message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Message is a fetched notification message, reduced to what the
// dispatcher needs for idempotence checks.
type Message struct {
	Body string
}

// Payload carries everything needed to render a notification, for both
// fresh sends and terminal edits.
type Payload struct {
	Kind         string // "post" or "story"
	Creator      string
	ItemID       string
	Caption      string
	Link         string
	Timestamp    string // item publication time, persisted format
	Notice       string // terminal notice, empty for fresh notifications
	NoticedAt    string // deletion/expiry time, persisted format
	LikeCount    *int
	CommentCount *int
	Media        []source.Media
}
