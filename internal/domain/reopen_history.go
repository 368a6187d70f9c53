package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// The reopen history is persisted as one text field with a single line
// per cycle, in append order:
//
//	#1 reopened 2025-07-01 10:00:00 pending
//	#1 reopened 2025-07-01 10:00:00 resolved 2025-07-01 10:30:00 (30m)
//
// The decoded entry slice is the canonical truth in memory; the text
// form exists only at the persistence boundary and is regenerated in
// full on every write, never edited in place.

const (
	historyMarkerReopened = "reopened"
	historyMarkerResolved = "resolved"
	historyMarkerPending  = "pending"
)

// EncodeReopenHistory serializes the entry sequence to its stored text
// form.
func EncodeReopenHistory(entries []ReopenEntry) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, encodeReopenEntry(e))
	}
	return strings.Join(lines, "\n")
}

func encodeReopenEntry(e ReopenEntry) string {
	if e.ResolvedAt == nil {
		return fmt.Sprintf("#%d %s %s %s",
			e.Sequence, historyMarkerReopened, FormatTimestamp(e.ReopenedAt), historyMarkerPending)
	}
	return fmt.Sprintf("#%d %s %s %s %s (%s)",
		e.Sequence, historyMarkerReopened, FormatTimestamp(e.ReopenedAt),
		historyMarkerResolved, FormatTimestamp(*e.ResolvedAt), e.Duration)
}

// DecodeReopenHistory parses a stored history field back into entries.
// Malformed lines are skipped so one corrupt cycle never hides the
// rest of the history.
func DecodeReopenHistory(text string) []ReopenEntry {
	var entries []ReopenEntry
	for _, line := range strings.Split(text, "\n") {
		if entry, ok := decodeReopenLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// DecodeLastReopenEntry parses only the final line of a stored history
// field. It fails soft: malformed or truncated text yields ok=false,
// never an error or panic, because callers fall back to the event's
// own duration in that case.
func DecodeLastReopenEntry(text string) (ReopenEntry, bool) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		return decodeReopenLine(lines[i])
	}
	return ReopenEntry{}, false
}

func decodeReopenLine(line string) (ReopenEntry, bool) {
	fields := strings.Fields(line)
	// Shortest valid form: "#N reopened <date> <time> pending".
	if len(fields) < 5 {
		return ReopenEntry{}, false
	}
	if !strings.HasPrefix(fields[0], "#") || fields[1] != historyMarkerReopened {
		return ReopenEntry{}, false
	}

	seq, err := strconv.Atoi(fields[0][1:])
	if err != nil || seq < 1 {
		return ReopenEntry{}, false
	}
	reopenedAt, ok := ParseTimestamp(fields[2] + " " + fields[3])
	if !ok {
		return ReopenEntry{}, false
	}

	entry := ReopenEntry{Sequence: seq, ReopenedAt: reopenedAt}

	switch fields[4] {
	case historyMarkerPending:
		return entry, true
	case historyMarkerResolved:
		// "resolved <date> <time> (<duration...>)"
		if len(fields) < 8 {
			return ReopenEntry{}, false
		}
		resolvedAt, ok := ParseTimestamp(fields[5] + " " + fields[6])
		if !ok {
			return ReopenEntry{}, false
		}
		duration := strings.Join(fields[7:], " ")
		if !strings.HasPrefix(duration, "(") || !strings.HasSuffix(duration, ")") {
			return ReopenEntry{}, false
		}
		entry.ResolvedAt = &resolvedAt
		entry.Duration = duration[1 : len(duration)-1]
		return entry, true
	}
	return ReopenEntry{}, false
}
