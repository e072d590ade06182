package domain

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width layout of stored timestamps. Values are
// always rendered in UTC, so the zone suffix is always "+00:00".
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// ErrBadTimestamp is returned by ParseTimestamp for input it cannot read.
var ErrBadTimestamp = errors.New("timestamp must be RFC 3339 or YYYY-MM-DD")

// FormatTimestamp renders t as a canonical stored timestamp
// (e.g. "2024-06-01T00:00:00+00:00"). Sub-second precision is dropped.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// ParseTimestamp reads a user-supplied instant and returns it in canonical
// form. Accepted inputs:
//   - RFC 3339 with any offset or "Z" ("2024-03-01T12:00:00+02:00")
//   - a local date-time without zone, taken as UTC ("2024-03-01T12:00:00")
//   - a bare date, taken as midnight UTC ("2024-03-01")
func ParseTimestamp(s string) (string, error) {
	t, err := ParseInstant(s)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}

// ParseInstant is ParseTimestamp without canonicalization: the instant keeps
// its sub-second part.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadTimestamp
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrBadTimestamp
}
