package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// HistoryRepo handles database operations for creator item histories
type HistoryRepo struct {
	db *DB
}

var _ HistoryRepository = (*HistoryRepo)(nil)

// NewHistoryRepo creates a new history repository
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Load returns the persisted history for a creator+kind. It never fails:
// missing rows yield an empty history, and a query or decode problem is
// logged and treated as missing. The reconciler owns all mutation; this is
// purely a read of the last saved state.
func (r *HistoryRepo) Load(creator string, kind Kind) CreatorHistory {
	var h CreatorHistory

	rows, err := r.db.Query(`
		SELECT item_id, published_at, marked_deleted, COALESCE(deleted_at, ''),
		       expired, COALESCE(expired_at, ''), channel_ids, message_ids,
		       like_count, comment_count
		FROM history_entries
		WHERE creator = ? AND kind = ?
		ORDER BY position
	`, creator, string(kind))
	if err != nil {
		slog.Warn("Failed to load history, starting fresh", "creator", creator, "kind", string(kind), "error", err)
		return CreatorHistory{}
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		var channelIDs, messageIDs string
		var likeCount, commentCount sql.NullInt64

		err := rows.Scan(&e.ItemID, &e.Timestamp, &e.MarkedDeleted, &e.DeletedAt,
			&e.Expired, &e.ExpiredAt, &channelIDs, &messageIDs,
			&likeCount, &commentCount)
		if err != nil {
			slog.Warn("Failed to scan history entry, starting fresh", "creator", creator, "kind", string(kind), "error", err)
			return CreatorHistory{}
		}

		if err := json.Unmarshal([]byte(channelIDs), &e.ChannelIDs); err != nil {
			slog.Warn("Malformed channel IDs in history entry", "creator", creator, "item", e.ItemID, "error", err)
			e.ChannelIDs = nil
		}
		if err := json.Unmarshal([]byte(messageIDs), &e.MessageIDs); err != nil {
			slog.Warn("Malformed message IDs in history entry", "creator", creator, "item", e.ItemID, "error", err)
			e.MessageIDs = nil
		}
		if likeCount.Valid {
			n := int(likeCount.Int64)
			e.LikeCount = &n
		}
		if commentCount.Valid {
			n := int(commentCount.Int64)
			e.CommentCount = &n
		}

		h.Entries = append(h.Entries, e)
	}

	if err := rows.Err(); err != nil {
		slog.Warn("Failed to iterate history entries, starting fresh", "creator", creator, "kind", string(kind), "error", err)
		return CreatorHistory{}
	}

	var latest LatestItem
	err = r.db.QueryRow(`
		SELECT item_id, published_at FROM latest_items WHERE creator = ? AND kind = ?
	`, creator, string(kind)).Scan(&latest.ItemID, &latest.Timestamp)
	switch {
	case err == sql.ErrNoRows:
		// no latest pointer yet
	case err != nil:
		slog.Warn("Failed to load latest pointer", "creator", creator, "kind", string(kind), "error", err)
	default:
		h.Latest = &latest
	}

	return h
}

// Save replaces the persisted history for a creator+kind with the given
// state. The whole replacement runs in one transaction.
func (r *HistoryRepo) Save(creator string, kind Kind, h CreatorHistory) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_entries WHERE creator = ? AND kind = ?`, creator, string(kind)); err != nil {
		return fmt.Errorf("failed to clear history entries: %w", err)
	}

	for i, e := range h.Entries {
		channelIDs, err := json.Marshal(orEmptyList(e.ChannelIDs))
		if err != nil {
			return fmt.Errorf("failed to encode channel IDs for %s: %w", e.ItemID, err)
		}
		messageIDs, err := json.Marshal(orEmptyMap(e.MessageIDs))
		if err != nil {
			return fmt.Errorf("failed to encode message IDs for %s: %w", e.ItemID, err)
		}

		_, err = tx.Exec(`
			INSERT INTO history_entries (
				creator, kind, item_id, position, published_at,
				marked_deleted, deleted_at, expired, expired_at,
				channel_ids, message_ids, like_count, comment_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, creator, string(kind), e.ItemID, i, e.Timestamp,
			e.MarkedDeleted, nullString(e.DeletedAt), e.Expired, nullString(e.ExpiredAt),
			string(channelIDs), string(messageIDs), nullInt(e.LikeCount), nullInt(e.CommentCount))
		if err != nil {
			return fmt.Errorf("failed to store history entry %s: %w", e.ItemID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM latest_items WHERE creator = ? AND kind = ?`, creator, string(kind)); err != nil {
		return fmt.Errorf("failed to clear latest pointer: %w", err)
	}
	if h.Latest != nil {
		_, err := tx.Exec(`
			INSERT INTO latest_items (creator, kind, item_id, published_at) VALUES (?, ?, ?, ?)
		`, creator, string(kind), h.Latest.ItemID, h.Latest.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to store latest pointer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	return nil
}

func orEmptyList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
