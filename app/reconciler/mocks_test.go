package reconciler

import (
	"context"
	"fmt"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/sink"
	"github.com/grammirror/gram-mirror/app/source"
)

type memHistoryRepo struct {
	histories map[string]history.CreatorHistory
	saveCount int
	saveErr   error
}

var _ history.HistoryRepository = (*memHistoryRepo)(nil)

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{histories: make(map[string]history.CreatorHistory)}
}

func (r *memHistoryRepo) key(creator string, kind history.Kind) string {
	return creator + "/" + string(kind)
}

func (r *memHistoryRepo) Load(creator string, kind history.Kind) history.CreatorHistory {
	return r.histories[r.key(creator, kind)]
}

func (r *memHistoryRepo) Save(creator string, kind history.Kind, h history.CreatorHistory) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saveCount++
	r.histories[r.key(creator, kind)] = h
	return nil
}

type memSettingsRepo struct {
	notifyChannel  string
	followerCounts map[string]int
}

var _ history.SettingsRepository = (*memSettingsRepo)(nil)

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{followerCounts: make(map[string]int)}
}

func (r *memSettingsRepo) GetAutoNotifyChannel() (string, error) {
	return r.notifyChannel, nil
}

func (r *memSettingsRepo) SetAutoNotifyChannel(channelID string) error {
	r.notifyChannel = channelID
	return nil
}

func (r *memSettingsRepo) GetFollowerCount(creator string) (*int, error) {
	count, ok := r.followerCounts[creator]
	if !ok {
		return nil, nil
	}
	return &count, nil
}

func (r *memSettingsRepo) SetFollowerCount(creator string, count int) error {
	r.followerCounts[creator] = count
	return nil
}

type fakeFetcher struct {
	posts      []source.Post
	postsErr   error
	stories    []source.Story
	storiesErr error
	profile    *source.Profile
	profileErr error

	profileCalls int
	mediaCalls   int
}

var _ Fetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) RecentPosts(_ context.Context, _ string, _ int) ([]source.Post, error) {
	return f.posts, f.postsErr
}

func (f *fakeFetcher) ActiveStories(_ context.Context, _ string) ([]source.Story, error) {
	return f.stories, f.storiesErr
}

func (f *fakeFetcher) ItemMedia(_ context.Context, _ string, refs []source.MediaRef) []source.Media {
	f.mediaCalls++
	media := make([]source.Media, 0, len(refs))
	for _, ref := range refs {
		media = append(media, source.Media{Data: []byte("data"), Filename: ref.Filename})
	}
	return media
}

func (f *fakeFetcher) Profile(_ context.Context, _ string) (*source.Profile, error) {
	f.profileCalls++
	return f.profile, f.profileErr
}

type sentMessage struct {
	channelID string
	payload   sink.Payload
}

type editedMessage struct {
	ref     sink.MessageRef
	payload sink.Payload
}

type fakeSink struct {
	sends    []sentMessage
	sendErr  error
	edits    []editedMessage
	editErr  error
	bodies   map[sink.MessageRef]string
	fetchErr error
}

var _ sink.Sink = (*fakeSink)(nil)

func newFakeSink() *fakeSink {
	return &fakeSink{bodies: make(map[sink.MessageRef]string)}
}

func (s *fakeSink) Send(_ context.Context, channelID string, p sink.Payload) (sink.MessageRef, error) {
	if s.sendErr != nil {
		return sink.MessageRef{}, s.sendErr
	}
	s.sends = append(s.sends, sentMessage{channelID: channelID, payload: p})
	return sink.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("msg-%d", len(s.sends))}, nil
}

func (s *fakeSink) Edit(_ context.Context, ref sink.MessageRef, p sink.Payload) error {
	if s.editErr != nil {
		return s.editErr
	}
	s.edits = append(s.edits, editedMessage{ref: ref, payload: p})
	return nil
}

func (s *fakeSink) Fetch(_ context.Context, ref sink.MessageRef) (*sink.Message, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	body, ok := s.bodies[ref]
	if !ok {
		return nil, sink.ErrNotFound
	}
	return &sink.Message{Body: body}, nil
}
