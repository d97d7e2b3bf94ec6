package filter

import (
	"path/filepath"

	"github.com/dyluth/boardsync/pkg/board"
)

// Criteria defines filtering criteria for activities.
// All filters are ANDed together - an activity must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	TypeGlob         string // Glob pattern for activity type, empty = no filter
	AuthorID         string // Exact match on the creator's user id, empty = no filter
}

// Matches returns true if the activity matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(a *board.Activity) bool {
	if c.SinceTimestampMs > 0 && a.CreatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && a.CreatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.TypeGlob != "" {
		matched, err := filepath.Match(c.TypeGlob, a.Type)
		if err != nil || !matched {
			return false
		}
	}

	if c.AuthorID != "" && a.CreatedBy.ID != c.AuthorID {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.TypeGlob != "" ||
		c.AuthorID != ""
}

// Activities returns the activities matching c, in their original order.
func (c *Criteria) Activities(in []board.Activity) []board.Activity {
	out := make([]board.Activity, 0, len(in))
	for i := range in {
		if c.Matches(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}
