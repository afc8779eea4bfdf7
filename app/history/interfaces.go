package history

// HistoryRepository is the persistence surface for per-creator item
// histories. Load never fails the caller: missing or corrupt state yields a
// defaulted empty history with a logged warning. Save replaces the whole
// history for one creator+kind in a single transaction, so a reader never
// observes a partially written entry set.
type HistoryRepository interface {
	Load(creator string, kind Kind) CreatorHistory
	Save(creator string, kind Kind, h CreatorHistory) error
}

// SettingsRepository persists the auto-notify destination and the
// last-observed follower count per creator.
type SettingsRepository interface {
	GetAutoNotifyChannel() (string, error)
	SetAutoNotifyChannel(channelID string) error

	GetFollowerCount(creator string) (*int, error)
	SetFollowerCount(creator string, count int) error
}
