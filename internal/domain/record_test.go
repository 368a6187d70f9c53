package domain

import (
	"testing"
	"time"
)

func TestNormalizeThreadID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "1394202624999559230", "1394202624999559230"},
		{"Whitespace", "  1394202624999559230 ", "1394202624999559230"},
		{"Empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeThreadID(tt.input); got != tt.expected {
				t.Errorf("NormalizeThreadID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, ok := ParseTimestamp("2025-07-01 10:00:00")
	if !ok {
		t.Fatal("expected valid timestamp to parse")
	}
	want := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimestamp() = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "  ", "2025-07-01", "yesterday", "2025-07-01T10:00:00Z"} {
		if _, ok := ParseTimestamp(bad); ok {
			t.Errorf("ParseTimestamp(%q) unexpectedly ok", bad)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	// Sub-second precision must not survive the boundary: stored
	// timestamps are exact to the second so codec round trips compare
	// equal.
	in := time.Date(2025, 7, 1, 10, 0, 0, 123456789, time.UTC)
	out, ok := ParseTimestamp(FormatTimestamp(in))
	if !ok {
		t.Fatal("round trip failed to parse")
	}
	if !out.Equal(in.Truncate(time.Second)) {
		t.Errorf("round trip = %v, want %v", out, in.Truncate(time.Second))
	}
}

func TestLastReopenEntry(t *testing.T) {
	rec := &TicketRecord{}
	if rec.LastReopenEntry() != nil {
		t.Error("expected nil for empty history")
	}

	rec.ReopenHistory = append(rec.ReopenHistory,
		ReopenEntry{Sequence: 1, ReopenedAt: ts("2025-07-01 10:00:00")},
		ReopenEntry{Sequence: 2, ReopenedAt: ts("2025-07-02 09:00:00")},
	)
	last := rec.LastReopenEntry()
	if last == nil || last.Sequence != 2 {
		t.Fatalf("LastReopenEntry() = %+v, want sequence 2", last)
	}

	// The pointer must alias the slice so closing the cycle mutates
	// the record's history in place.
	now := ts("2025-07-02 10:00:00")
	last.ResolvedAt = &now
	if rec.ReopenHistory[1].ResolvedAt == nil {
		t.Error("mutation through LastReopenEntry did not reach the history slice")
	}
}
