package source

import (
	"errors"
	"time"
)

// ErrRateLimited signals that the source throttled the calling identity.
// The fetch guard treats it like any other transient error but logs the
// throttle explicitly; rotation happens on every call regardless.
var ErrRateLimited = errors.New("source rate limited")

// Post is a source-reported post snapshot, most recent first in fetch order.
type Post struct {
	ID           string
	Creator      string
	TakenAt      *time.Time
	Caption      string
	Pinned       bool
	LikeCount    int
	CommentCount int
	Media        []MediaRef
}

// URL returns the public permalink for the post.
func (p Post) URL() string {
	return "https://www.instagram.com/p/" + p.ID + "/"
}

// Story is a source-reported active story snapshot. Stories carry no
// engagement stats.
type Story struct {
	ID      string
	Creator string
	TakenAt *time.Time
	Caption string
	Media   []MediaRef
}

// URL returns the public permalink for the story.
func (s Story) URL() string {
	return "https://www.instagram.com/stories/" + s.Creator + "/" + s.ID + "/"
}

// MediaRef points at a downloadable media resource of an item.
type MediaRef struct {
	URL      string
	Filename string
}

// Media is a downloaded media payload.
type Media struct {
	Data     []byte
	Filename string
}

// Profile is the public account summary for a creator.
type Profile struct {
	Creator        string
	FullName       string
	Biography      string
	FollowerCount  int
	FollowingCount int
	AvatarURL      string
}
