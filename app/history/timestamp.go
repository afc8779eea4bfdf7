package history

import (
	"time"
)

// TimestampLayout is the fixed UTC format used for every persisted
// timestamp. The format sorts lexicographically in chronological order,
// which the latest-pointer comparison relies on.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// UnknownTimestamp stands in for items whose publication time is not known.
// It sorts below every real timestamp.
const UnknownTimestamp = "1970-01-01 00:00:00 UTC"

// FormatTimestamp renders a time in the persisted timestamp format.
// Nil or zero times map to UnknownTimestamp.
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return UnknownTimestamp
	}
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a persisted timestamp back into a UTC time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}
