package board

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// MatchTitles applies a BoardQuery's text to boards already in creation order.
// Blank text keeps every board. Otherwise only boards whose title fuzzy-matches
// the text are kept, best match first. Every gateway filters through it so the
// board list behaves the same whatever the backend.
func MatchTitles(boards []Board, q *BoardQuery) []Board {
	if q == nil || strings.TrimSpace(q.Txt) == "" {
		return boards
	}

	titles := make([]string, len(boards))
	for i, b := range boards {
		titles[i] = b.Title
	}
	matches := fuzzy.Find(q.Txt, titles)
	filtered := make([]Board, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, boards[m.Index])
	}
	return filtered
}
