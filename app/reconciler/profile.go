package reconciler

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/grammirror/gram-mirror/app/history"
	"github.com/grammirror/gram-mirror/app/source"
)

// ProfileSummary is a creator profile snapshot enriched with the follower
// delta since the previous lookup and the latest known item timestamps.
type ProfileSummary struct {
	Profile        source.Profile
	Avatar         *source.Media
	FollowerChange string
	LastPostAt     string
	LastStoryAt    string
}

// Profiler serves profile summaries, caching fetched profiles for a TTL
// and tracking follower counts across lookups.
type Profiler struct {
	fetcher      Fetcher
	historyRepo  history.HistoryRepository
	settingsRepo history.SettingsRepository
	cache        *ProfileCache
	printer      *message.Printer
}

func NewProfiler(fetcher Fetcher, historyRepo history.HistoryRepository, settingsRepo history.SettingsRepository, cache *ProfileCache) *Profiler {
	return &Profiler{
		fetcher:      fetcher,
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		cache:        cache,
		printer:      message.NewPrinter(language.English),
	}
}

func (p *Profiler) Summary(ctx context.Context, creator string) (*ProfileSummary, error) {
	cached, ok := p.cache.Get(creator)
	if !ok {
		profile, err := p.fetcher.Profile(ctx, creator)
		if err != nil {
			return nil, err
		}
		cached = CachedProfile{Profile: *profile}
		if profile.AvatarURL != "" {
			media := p.fetcher.ItemMedia(ctx, creator, []source.MediaRef{
				{URL: profile.AvatarURL, Filename: creator + "_avatar.jpg"},
			})
			if len(media) > 0 {
				cached.Avatar = &media[0]
			}
		}
		p.cache.Put(creator, cached)
	}

	summary := &ProfileSummary{
		Profile:        cached.Profile,
		Avatar:         cached.Avatar,
		FollowerChange: p.followerChange(creator, cached.Profile.FollowerCount),
		LastPostAt:     history.UnknownTimestamp,
		LastStoryAt:    history.UnknownTimestamp,
	}

	if latest := p.historyRepo.Load(creator, history.KindPost).Latest; latest != nil {
		summary.LastPostAt = latest.Timestamp
	}
	if latest := p.historyRepo.Load(creator, history.KindStory).Latest; latest != nil {
		summary.LastStoryAt = latest.Timestamp
	}

	return summary, nil
}

// followerChange compares the current follower count to the persisted one
// and stores the new value. Persistence errors degrade to "no prior count".
func (p *Profiler) followerChange(creator string, current int) string {
	previous, err := p.settingsRepo.GetFollowerCount(creator)
	if err != nil {
		slog.Warn("Follower count lookup failed", "creator", creator, "error", err)
		previous = nil
	}
	if err := p.settingsRepo.SetFollowerCount(creator, current); err != nil {
		slog.Warn("Follower count update failed", "creator", creator, "error", err)
	}

	if previous == nil {
		return p.printer.Sprintf("%d followers.", current)
	}

	diff := current - *previous
	switch {
	case diff > 0:
		return p.printer.Sprintf("%d followers (+%d since last check).", current, diff)
	case diff < 0:
		return p.printer.Sprintf("%d followers (%d since last check).", current, diff)
	default:
		return p.printer.Sprintf("%d followers (no change since last check).", current)
	}
}
