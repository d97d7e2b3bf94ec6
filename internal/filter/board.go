// Package filter derives filtered views of boards and activity logs.
package filter

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/pkg/board"
)

// ErrInvalidPattern is returned when the query text is not a valid regular expression.
var ErrInvalidPattern = errors.New("invalid filter pattern")

// Matcher is a compiled, case-insensitive query pattern.
type Matcher struct {
	re *regexp.Regexp
}

// Compile builds a Matcher from query text. Empty text matches everything.
func Compile(text string) (*Matcher, error) {
	re, err := regexp.Compile("(?i)" + text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, text, err)
	}
	return &Matcher{re: re}, nil
}

// Matches reports whether s contains a match of the pattern.
func (m *Matcher) Matches(s string) bool {
	return m.re.MatchString(s)
}

// Derive computes the filtered view of b for query q.
//
// A group whose title matches keeps all of its tasks. Otherwise a task survives
// when its title matches or the rendered text of any of the board's declared
// columns matches; missing values and unknown column types render as "".
// Groups left with no tasks are dropped. Group and task order is preserved.
//
// The result never shares memory with b.
func Derive(b board.Board, q board.FilterQuery, reg columns.Lookup) (board.Board, error) {
	query := q.Clone()
	m, err := Compile(query.Txt)
	if err != nil {
		return board.Board{}, err
	}

	out := b.Clone()
	if out.Groups == nil {
		return out, nil
	}
	groups := make([]board.Group, 0, len(out.Groups))
	for _, g := range out.Groups {
		if m.Matches(g.Title) {
			groups = append(groups, g)
			continue
		}

		tasks := make([]board.Task, 0, len(g.Tasks))
		for _, t := range g.Tasks {
			if m.taskMatches(t, out.Columns, reg) {
				tasks = append(tasks, t)
			}
		}
		if len(tasks) == 0 {
			continue
		}
		g.Tasks = tasks
		groups = append(groups, g)
	}
	out.Groups = groups
	return out, nil
}

func (m *Matcher) taskMatches(t board.Task, declared []string, reg columns.Lookup) bool {
	if m.Matches(t.Title) {
		return true
	}
	// Only declared columns are searched; stale keys on the task are ignored.
	// A column without text never matches, even for patterns like "^$".
	for _, col := range declared {
		if text := columns.Render(reg, col, t.Columns[col]); text != "" && m.Matches(text) {
			return true
		}
	}
	return false
}
