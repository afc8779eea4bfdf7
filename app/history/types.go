package history

// Kind distinguishes the two item lifecycles tracked per creator.
type Kind string

const (
	KindPost  Kind = "post"
	KindStory Kind = "story"
)

// Entry is the persisted record of a single item ever seen for a
// creator+kind, including its delivery state per destination channel.
// Posts use MarkedDeleted/DeletedAt, stories use Expired/ExpiredAt.
type Entry struct {
	ItemID        string
	Timestamp     string // "YYYY-MM-DD HH:MM:SS UTC"
	MarkedDeleted bool
	DeletedAt     string
	Expired       bool
	ExpiredAt     string
	ChannelIDs    []string
	MessageIDs    map[string]string // channel ID -> message ID
	LikeCount     *int
	CommentCount  *int
}

// DeliveredTo reports whether a notification for this entry was sent to the
// given channel.
func (e *Entry) DeliveredTo(channelID string) bool {
	_, ok := e.MessageIDs[channelID]
	return ok
}

// RecordDelivery adds a delivery record for a channel. Adding the same
// channel twice is a no-op.
func (e *Entry) RecordDelivery(channelID, messageID string) {
	if e.MessageIDs == nil {
		e.MessageIDs = make(map[string]string)
	}
	if _, ok := e.MessageIDs[channelID]; ok {
		return
	}
	e.ChannelIDs = append(e.ChannelIDs, channelID)
	e.MessageIDs[channelID] = messageID
}

// LatestItem points at the entry with the greatest timestamp seen so far.
type LatestItem struct {
	ItemID    string
	Timestamp string
}

// CreatorHistory is the full persisted state for one creator+kind.
// Entries are kept in insertion order and never removed, only flagged.
type CreatorHistory struct {
	Latest  *LatestItem
	Entries []Entry
}

// Find returns the entry with the given item ID, or nil.
func (h *CreatorHistory) Find(itemID string) *Entry {
	for i := range h.Entries {
		if h.Entries[i].ItemID == itemID {
			return &h.Entries[i]
		}
	}
	return nil
}

// KnownIDs returns the set of item IDs present in the history.
func (h *CreatorHistory) KnownIDs() map[string]bool {
	ids := make(map[string]bool, len(h.Entries))
	for i := range h.Entries {
		ids[h.Entries[i].ItemID] = true
	}
	return ids
}

// Append adds a new entry and advances the latest pointer. Timestamps
// compare lexicographically in the fixed "YYYY-MM-DD HH:MM:SS UTC" format,
// so entries with an unknown timestamp sort as minimal. Ties go to the
// later-inserted entry.
func (h *CreatorHistory) Append(e Entry) {
	h.Entries = append(h.Entries, e)
	h.AdvanceLatest(e.ItemID, e.Timestamp)
}

// AdvanceLatest moves the latest pointer unless the current one is strictly
// newer.
func (h *CreatorHistory) AdvanceLatest(itemID, timestamp string) {
	if h.Latest == nil || timestamp >= h.Latest.Timestamp {
		h.Latest = &LatestItem{ItemID: itemID, Timestamp: timestamp}
	}
}
