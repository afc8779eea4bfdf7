package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/source"
)

const DefaultPostFetchCount = 3

// Reconciler drives the content lifecycle for a single creator and channel:
// it loads the persisted history, fetches the current source state, diffs
// the two, dispatches the resulting notifications and persists the updated
// history. Passes for the same creator and kind are serialized.
type Reconciler struct {
	historyRepo history.HistoryRepository
	fetcher     Fetcher
	dispatcher  *Dispatcher

	postFetchCount int
	now            func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(historyRepo history.HistoryRepository, fetcher Fetcher, dispatcher *Dispatcher) *Reconciler {
	return &Reconciler{
		historyRepo:    historyRepo,
		fetcher:        fetcher,
		dispatcher:     dispatcher,
		postFetchCount: DefaultPostFetchCount,
		now:            time.Now,
		locks:          make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the time source. Used in tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

func (r *Reconciler) lockFor(creator string, kind history.Kind) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := creator + "/" + string(kind)
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// CheckPosts runs one post reconciliation pass for the creator against the
// given channel. A fetch failure aborts the pass without touching history;
// a successful fetch that returns nothing still drives deletion detection.
func (r *Reconciler) CheckPosts(ctx context.Context, channelID, creator string, fetchCount int) error {
	lock := r.lockFor(creator, history.KindPost)
	lock.Lock()
	defer lock.Unlock()

	if fetchCount <= 0 {
		fetchCount = r.postFetchCount
	}

	h := r.historyRepo.Load(creator, history.KindPost)

	posts, err := r.fetcher.RecentPosts(ctx, creator, fetchCount)
	if err != nil {
		slog.Warn("Posts unavailable, skipping pass", "creator", creator, "error", err)
		return nil
	}

	candidates := make([]source.Post, 0, len(posts))
	fetchedIDs := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.Pinned {
			continue
		}
		candidates = append(candidates, p)
		fetchedIDs[p.ID] = true
	}

	actions := PostActions{}

	for i := range h.Entries {
		e := &h.Entries[i]
		if fetchedIDs[e.ItemID] || !e.DeliveredTo(channelID) || e.MarkedDeleted {
			continue
		}
		e.MarkedDeleted = true
		e.DeletedAt = history.FormatTimestamp(ptrTime(r.now()))
		actions.Deleted = append(actions.Deleted, DeletedPostAction{
			ChannelID: channelID,
			Creator:   creator,
			Entry:     *e,
		})
	}

	if selected, ok := selectLatest(candidates); ok {
		entry := h.Find(selected.ID)
		isNew := entry == nil || !entry.DeliveredTo(channelID)
		if entry == nil {
			h.Append(history.Entry{
				ItemID:       selected.ID,
				Timestamp:    history.FormatTimestamp(selected.TakenAt),
				LikeCount:    intPtr(selected.LikeCount),
				CommentCount: intPtr(selected.CommentCount),
			})
		} else {
			entry.LikeCount = intPtr(selected.LikeCount)
			entry.CommentCount = intPtr(selected.CommentCount)
		}
		h.AdvanceLatest(selected.ID, history.FormatTimestamp(selected.TakenAt))

		if isNew {
			media := r.fetcher.ItemMedia(ctx, creator, selected.Media)
			actions.New = &NewPostAction{
				ChannelID: channelID,
				Post:      selected,
				Timestamp: history.FormatTimestamp(selected.TakenAt),
				Media:     media,
			}
		}
	}

	if err := r.historyRepo.Save(creator, history.KindPost, h); err != nil {
		return err
	}

	for _, a := range actions.Deleted {
		r.dispatcher.EditDeletedPost(ctx, a)
	}

	if a := actions.New; a != nil {
		ref, err := r.dispatcher.SendNewPost(ctx, *a)
		if err != nil {
			slog.Warn("Post notification failed, will retry next pass",
				"creator", creator, "item_id", a.Post.ID, "error", err)
			return nil
		}
		if entry := h.Find(a.Post.ID); entry != nil {
			entry.RecordDelivery(ref.ChannelID, ref.MessageID)
		}
		if err := r.historyRepo.Save(creator, history.KindPost, h); err != nil {
			return err
		}
	}

	return nil
}

// CheckStories runs one story reconciliation pass for the creator against
// the given channel.
func (r *Reconciler) CheckStories(ctx context.Context, channelID, creator string) error {
	lock := r.lockFor(creator, history.KindStory)
	lock.Lock()
	defer lock.Unlock()

	h := r.historyRepo.Load(creator, history.KindStory)

	stories, err := r.fetcher.ActiveStories(ctx, creator)
	if err != nil {
		slog.Warn("Stories unavailable, skipping pass", "creator", creator, "error", err)
		return nil
	}

	activeIDs := make(map[string]bool, len(stories))
	for _, s := range stories {
		activeIDs[s.ID] = true
	}

	actions := StoryActions{}

	for _, s := range stories {
		entry := h.Find(s.ID)
		if entry != nil && entry.DeliveredTo(channelID) {
			continue
		}
		if entry == nil {
			h.Append(history.Entry{
				ItemID:    s.ID,
				Timestamp: history.FormatTimestamp(s.TakenAt),
			})
		}
		h.AdvanceLatest(s.ID, history.FormatTimestamp(s.TakenAt))

		media := r.fetcher.ItemMedia(ctx, creator, s.Media)
		actions.New = append(actions.New, NewStoryAction{
			ChannelID: channelID,
			Story:     s,
			Timestamp: history.FormatTimestamp(s.TakenAt),
			Media:     media,
		})
	}

	for i := range h.Entries {
		e := &h.Entries[i]
		if activeIDs[e.ItemID] || !e.DeliveredTo(channelID) || e.Expired {
			continue
		}
		e.Expired = true
		e.ExpiredAt = history.FormatTimestamp(ptrTime(r.now()))
		actions.Expired = append(actions.Expired, ExpiredStoryAction{
			ChannelID: channelID,
			Creator:   creator,
			Entry:     *e,
		})
	}

	if err := r.historyRepo.Save(creator, history.KindStory, h); err != nil {
		return err
	}

	for _, a := range actions.Expired {
		r.dispatcher.EditExpiredStory(ctx, a)
	}

	for _, a := range actions.New {
		ref, err := r.dispatcher.SendNewStory(ctx, a)
		if err != nil {
			slog.Warn("Story notification failed, will retry next pass",
				"creator", creator, "item_id", a.Story.ID, "error", err)
			continue
		}
		if entry := h.Find(a.Story.ID); entry != nil {
			entry.RecordDelivery(ref.ChannelID, ref.MessageID)
		}
		if err := r.historyRepo.Save(creator, history.KindStory, h); err != nil {
			return err
		}
	}

	return nil
}

// selectLatest picks the post to consider for notification: the first
// candidate, unless a second one exists and is strictly newer.
func selectLatest(candidates []source.Post) (source.Post, bool) {
	if len(candidates) == 0 {
		return source.Post{}, false
	}
	selected := candidates[0]
	if len(candidates) > 1 && takenAfter(candidates[1].TakenAt, candidates[0].TakenAt) {
		selected = candidates[1]
	}
	return selected, true
}

func takenAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func ptrTime(t time.Time) *time.Time { return &t }

func intPtr(v int) *int { return &v }
