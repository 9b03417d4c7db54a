// Package duration parses the compact duration literals used by window
// sizes, hops, session timeouts, and flow TTLs: "2m", "500ms", "5s", "1h",
// "2d", "1w" (spec §2.1, §4.11, §6).
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse parses a duration literal of the form <integer><unit> where unit is
// one of ms|s|m|h|d|w. It does not accept Go's native duration syntax
// (fractional units, multiple segments) — the surface grammar only ever
// produces this restricted shape.
func Parse(lit string) (time.Duration, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return 0, fmt.Errorf("duration: empty literal")
	}

	i := 0
	for i < len(lit) && (lit[i] == '-' || (lit[i] >= '0' && lit[i] <= '9')) {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("duration: %q has no numeric magnitude", lit)
	}
	magnitude, err := strconv.ParseInt(lit[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("duration: invalid magnitude in %q: %w", lit, err)
	}

	unit := strings.ToLower(lit[i:])
	switch unit {
	case "ms":
		return time.Duration(magnitude) * time.Millisecond, nil
	case "s":
		return time.Duration(magnitude) * time.Second, nil
	case "m":
		return time.Duration(magnitude) * time.Minute, nil
	case "h":
		return time.Duration(magnitude) * time.Hour, nil
	case "d":
		return time.Duration(magnitude) * 24 * time.Hour, nil
	case "w":
		return time.Duration(magnitude) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("duration: unknown unit %q in %q", unit, lit)
	}
}

// MustParse is Parse with a panic on error, used for constants in tests.
func MustParse(lit string) time.Duration {
	d, err := Parse(lit)
	if err != nil {
		panic(err)
	}
	return d
}

// AlignToWindow truncates t down to the nearest multiple of size since the
// Unix epoch.
func AlignToWindow(t time.Time, size time.Duration) time.Time {
	if size <= 0 || t.IsZero() {
		return t
	}
	offset := t.UnixNano() % int64(size)
	if offset < 0 {
		offset += int64(size)
	}
	return t.Add(-time.Duration(offset))
}
