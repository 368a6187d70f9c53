package domain

import (
	"strings"
	"time"
)

// TimestampLayout is the second-precision layout used everywhere a
// timestamp crosses a boundary: event payloads, the reopen history
// field and API responses. All stored times are UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// TicketRecord is the authoritative per-ticket row. Exactly one exists
// per thread id; it is created once and mutated by every later event
// addressed to the same id.
type TicketRecord struct {
	ThreadID             string
	Title                string
	CategoryTags         string
	RaisedBy             string
	CreatedAt            time.Time
	FirstResponder       string
	TimeToFirstResponse  string
	ResolutionDate       *time.Time
	TimeToResolution     string
	Link                 string
	IsEngineering        bool
	OutsideBusinessHours bool
	ReopenCount          int
	PendingNotification  string
	ReopenHistory        []ReopenEntry
	UpdatedAt            time.Time
}

// ReopenEntry is one reopen/resolve cycle inside a record's reopen
// history. ResolvedAt and Duration stay empty while the cycle is open.
type ReopenEntry struct {
	Sequence   int
	ReopenedAt time.Time
	ResolvedAt *time.Time
	Duration   string
}

// Pending reports whether this cycle is still waiting for its resolve.
func (e ReopenEntry) Pending() bool {
	return e.ResolvedAt == nil
}

// LastReopenEntry returns a pointer into the history slice for the most
// recent cycle, or nil when the record was never reopened.
func (r *TicketRecord) LastReopenEntry() *ReopenEntry {
	if len(r.ReopenHistory) == 0 {
		return nil
	}
	return &r.ReopenHistory[len(r.ReopenHistory)-1]
}

// NormalizeThreadID canonicalizes a ticket identifier so that numeric
// and string payload variants of the same id compare equal.
func NormalizeThreadID(id string) string {
	return strings.TrimSpace(id)
}

// FormatTimestamp renders a time at the canonical second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a canonical timestamp. The zero time and false
// are returned for empty or malformed input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
