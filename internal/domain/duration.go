package domain

import (
	"strconv"
	"strings"
	"time"
)

// ZeroDuration is the canonical rendering of an empty or clamped
// interval.
const ZeroDuration = "0s"

// FormatDuration renders an elapsed interval as a compact unit string
// ("45s", "1m 30s", "1h 1m", "1d 1h 0m"). A unit segment appears once
// it or any larger unit is non-zero, except seconds, which are
// suppressed once the duration reaches the hour scale. Negative input
// clamps to the zero string. This is the single source of truth for
// duration rendering: both first-pass computation and reopen-cycle
// recomputation go through it, so results compare bit-for-bit.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		return ZeroDuration
	}

	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 || days > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}
	if len(parts) == 0 || (days == 0 && hours == 0) {
		parts = append(parts, strconv.FormatInt(seconds, 10)+"s")
	}

	return strings.Join(parts, " ")
}

// ParseDuration inverts FormatDuration. Unknown or malformed segments
// are skipped rather than failing the whole parse; an input with no
// recognizable segment returns false.
func ParseDuration(s string) (time.Duration, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}

	var total time.Duration
	matched := false
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		value, err := strconv.ParseInt(f[:len(f)-1], 10, 64)
		if err != nil {
			continue
		}
		switch f[len(f)-1] {
		case 'd':
			total += time.Duration(value) * 24 * time.Hour
		case 'h':
			total += time.Duration(value) * time.Hour
		case 'm':
			total += time.Duration(value) * time.Minute
		case 's':
			total += time.Duration(value) * time.Second
		default:
			continue
		}
		matched = true
	}
	return total, matched
}
