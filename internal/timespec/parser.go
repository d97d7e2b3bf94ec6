// Package timespec parses the --since/--until flags of the activity command.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// now is replaced in tests.
var now = time.Now

// Parse parses a time specification into a Unix timestamp in milliseconds.
// Supported forms:
//   - Go durations, relative to now: "1h", "30m", "1h30m"
//   - whole days, relative to now: "2d"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - calendar dates in UTC: "2025-10-29"
//   - raw Unix milliseconds: "1730206800000"
//   - "now"
func Parse(spec string) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if spec == "now" {
		return now().UnixMilli(), nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if t, err := time.Parse("2006-01-02", spec); err == nil {
		return t.UnixMilli(), nil
	}

	if days, ok := strings.CutSuffix(spec, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now().Add(-time.Duration(n) * 24 * time.Hour).UnixMilli(), nil
		}
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now().Add(-d).UnixMilli(), nil
	}

	if ms, err := strconv.ParseInt(spec, 10, 64); err == nil && ms > 0 {
		return ms, nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or '2d', a date, or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseRange parses --since and --until. Zero means no bound on that side.
func ParseRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = Parse(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = Parse(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
