package history

import (
	"database/sql"
	"fmt"
	"time"
)

const autoNotifyKey = "auto_notify_channel"

// SettingsRepo handles database operations for notification settings and
// follower counts
type SettingsRepo struct {
	db *DB
}

var _ SettingsRepository = (*SettingsRepo)(nil)

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// GetAutoNotifyChannel returns the configured auto-notify destination, or an
// empty string when auto-notify is disabled.
func (r *SettingsRepo) GetAutoNotifyChannel() (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM notify_settings WHERE key = ?`, autoNotifyKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get auto-notify channel: %w", err)
	}
	return value, nil
}

// SetAutoNotifyChannel stores the auto-notify destination. An empty channel
// ID disables auto-notify.
func (r *SettingsRepo) SetAutoNotifyChannel(channelID string) error {
	_, err := r.db.Exec(`
		INSERT INTO notify_settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, autoNotifyKey, channelID)
	if err != nil {
		return fmt.Errorf("failed to set auto-notify channel: %w", err)
	}
	return nil
}

// GetFollowerCount returns the last observed follower count for a creator,
// or nil when none was recorded yet.
func (r *SettingsRepo) GetFollowerCount(creator string) (*int, error) {
	var count int
	err := r.db.QueryRow(`SELECT count FROM follower_counts WHERE creator = ?`, creator).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get follower count: %w", err)
	}
	return &count, nil
}

// SetFollowerCount records the current follower count for a creator.
func (r *SettingsRepo) SetFollowerCount(creator string, count int) error {
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO follower_counts (creator, count, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (creator) DO UPDATE SET count = excluded.count, updated_at = excluded.updated_at
	`, creator, count, FormatTimestamp(&now))
	if err != nil {
		return fmt.Errorf("failed to set follower count: %w", err)
	}
	return nil
}
