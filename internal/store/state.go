// Package store holds the in-memory board state of one client session.
//
// State is the only owner of the board list, the current board, the active filter
// query and the filtered view derived from them. Every method is individually atomic;
// nothing holds the lock across calls, so callers sequencing several primitives must
// tolerate interleaving. Mutations address entities by id, which turns a stale
// update for a board or activity that has since gone away into a no-op or an
// explicit not-found error rather than corruption.
//
// All boards handed in or out are copied, so callers never alias the canonical state.
package store

import (
	"errors"
	"sync"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/internal/filter"
	"github.com/dyluth/boardsync/pkg/board"
)

var (
	// ErrNoCurrentBoard is returned by operations that need a selected board.
	ErrNoCurrentBoard = errors.New("no board selected")

	// ErrBoardNotFound is returned when a board id is not in the cached list.
	ErrBoardNotFound = errors.New("board not found")

	// ErrActivityNotFound is returned when an activity id is not on the current board.
	ErrActivityNotFound = errors.New("activity not found")
)

// EmptyTaskProvider knows the per-board defaults for new tasks.
type EmptyTaskProvider interface {
	EmptyTask(b board.Board) (board.Task, error)
}

// State is the board state container of a session.
type State struct {
	mu       sync.RWMutex
	boards   []board.Board
	current  *board.Board
	filtered *board.Board
	filterBy board.FilterQuery

	tasks    EmptyTaskProvider
	registry columns.Lookup
}

// New creates an empty state container.
func New(tasks EmptyTaskProvider, registry columns.Lookup) *State {
	return &State{
		boards:   []board.Board{},
		tasks:    tasks,
		registry: registry,
	}
}

// Boards returns a copy of the cached board list.
func (s *State) Boards() []board.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]board.Board, len(s.boards))
	for i, b := range s.boards {
		out[i] = b.Clone()
	}
	return out
}

// CurrentBoard returns a copy of the selected board.
func (s *State) CurrentBoard() (*board.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePtr(s.current)
}

// FilteredBoard returns a copy of the filtered view of the selected board.
func (s *State) FilteredBoard() (*board.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePtr(s.filtered)
}

// FilterBy returns the active filter query.
func (s *State) FilterBy() board.FilterQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterBy.Clone()
}

// EmptyTask returns a blank task shaped for the selected board.
func (s *State) EmptyTask() (board.Task, error) {
	cur, ok := s.CurrentBoard()
	if !ok {
		return board.Task{}, ErrNoCurrentBoard
	}
	if s.tasks == nil {
		return board.NewEmptyTask(*cur), nil
	}
	return s.tasks.EmptyTask(*cur)
}

// ActivitiesForTask returns the current board's activities for a task and type,
// most recent first. The result is empty, never nil.
func (s *State) ActivitiesForTask(taskID, activityType string) []board.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []board.Activity{}
	if s.current == nil {
		return out
	}
	for _, a := range s.current.Activities {
		if a.TaskID == taskID && a.Type == activityType {
			out = append(out, a.Clone())
		}
	}
	return out
}

// ReplaceBoardList swaps the cached board list.
func (s *State) ReplaceBoardList(boards []board.Board) {
	list := make([]board.Board, len(boards))
	for i, b := range boards {
		list[i] = b.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = list
}

// SelectBoard makes b the current board and rebuilds the filtered view.
func (s *State) SelectBoard(b board.Board) {
	c := b.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &c
	s.refilter()
}

// DeleteBoardFromList removes a board from the cached list. Absent ids are ignored.
func (s *State) DeleteBoardFromList(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(boardID); i >= 0 {
		s.boards = append(s.boards[:i], s.boards[i+1:]...)
	}
}

// ReplaceBoard replaces a board in the cached list and selects it.
// If the id is not in the list nothing changes and ErrBoardNotFound is returned.
func (s *State) ReplaceBoard(updated board.Board) error {
	c := updated.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(c.ID)
	if i < 0 {
		return ErrBoardNotFound
	}
	s.boards[i] = c.Clone()
	s.current = &c
	s.refilter()
	return nil
}

// UpsertBoard replaces a board in the cached list, or appends it when absent.
func (s *State) UpsertBoard(b board.Board) {
	c := b.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(c.ID); i >= 0 {
		s.boards[i] = c
		return
	}
	s.boards = append(s.boards, c)
}

// ApplyFilter sets the filter query and rebuilds the filtered view.
// An invalid pattern leaves the previous query in place.
// A valid query is stored even when no board is selected.
func (s *State) ApplyFilter(q board.FilterQuery) error {
	if _, err := filter.Compile(q.Txt); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.filterBy = q.Clone()
	if s.current == nil {
		return ErrNoCurrentBoard
	}
	s.refilter()
	return nil
}

// PrependActivity inserts an activity at the head of the current board's log.
func (s *State) PrependActivity(a board.Activity) error {
	return s.mutateCurrent(func(b *board.Board) error {
		b.Activities = append([]board.Activity{a.Clone()}, b.Activities...)
		return nil
	})
}

// InsertActivityAt puts an activity back at a given position of the current
// board's log. The index is clamped to the log bounds.
func (s *State) InsertActivityAt(a board.Activity, index int) error {
	return s.mutateCurrent(func(b *board.Board) error {
		if index < 0 {
			index = 0
		}
		if index > len(b.Activities) {
			index = len(b.Activities)
		}
		acts := make([]board.Activity, 0, len(b.Activities)+1)
		acts = append(acts, b.Activities[:index]...)
		acts = append(acts, a.Clone())
		acts = append(acts, b.Activities[index:]...)
		b.Activities = acts
		return nil
	})
}

// SetColumns replaces the current board's declared columns.
// Task values for dropped columns are kept and ignored.
func (s *State) SetColumns(cols []string) error {
	return s.mutateCurrent(func(b *board.Board) error {
		b.Columns = append([]string{}, cols...)
		return nil
	})
}

// ToggleActivityLike adds user to the activity's liked-by set, or removes them
// if already present. Users are compared by id.
func (s *State) ToggleActivityLike(activityID string, user board.User) error {
	return s.mutateCurrent(func(b *board.Board) error {
		i := b.FindActivity(activityID)
		if i < 0 {
			return ErrActivityNotFound
		}
		a := &b.Activities[i]
		if a.HasLike(user.ID) {
			kept := make([]board.User, 0, len(a.Content.LikedBy))
			for _, u := range a.Content.LikedBy {
				if u.ID != user.ID {
					kept = append(kept, u)
				}
			}
			a.Content.LikedBy = kept
			return nil
		}
		a.Content.LikedBy = append(a.Content.LikedBy, user.Stripped())
		return nil
	})
}

// RemoveActivity removes the first activity with the given id from the current
// board and returns it with its former index. An absent id is a no-op that
// returns (nil, -1, nil).
func (s *State) RemoveActivity(activityID string) (*board.Activity, int, error) {
	var removed *board.Activity
	index := -1
	err := s.mutateCurrent(func(b *board.Board) error {
		i := b.FindActivity(activityID)
		if i < 0 {
			return errNoChange
		}
		a := b.Activities[i]
		removed = &a
		index = i
		b.Activities = append(b.Activities[:i:i], b.Activities[i+1:]...)
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil, -1, nil
	}
	if err != nil {
		return nil, -1, err
	}
	return removed, index, nil
}

// Reset drops all session state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = []board.Board{}
	s.current = nil
	s.filtered = nil
	s.filterBy = board.FilterQuery{}
}

// errNoChange aborts a mutation without reporting an error to the caller.
var errNoChange = errors.New("no change")

// mutateCurrent applies fn to the current board under the write lock, then keeps
// the cached list entry and the filtered view in step with it.
// If fn fails the current board is left untouched.
func (s *State) mutateCurrent(fn func(b *board.Board) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoCurrentBoard
	}
	next := s.current.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.current = &next
	if i := s.indexOf(next.ID); i >= 0 {
		s.boards[i] = next.Clone()
	}
	s.refilter()
	return nil
}

// refilter rebuilds the filtered view from the current board. Caller holds mu.
func (s *State) refilter() {
	if s.current == nil {
		s.filtered = nil
		return
	}
	if s.filterBy.Txt == "" {
		c := s.current.Clone()
		s.filtered = &c
		return
	}
	derived, err := filter.Derive(*s.current, s.filterBy, s.registry)
	if err != nil {
		// Stored queries always compile; show everything rather than nothing
		c := s.current.Clone()
		s.filtered = &c
		return
	}
	s.filtered = &derived
}

func (s *State) indexOf(boardID string) int {
	for i := range s.boards {
		if s.boards[i].ID == boardID {
			return i
		}
	}
	return -1
}

func clonePtr(b *board.Board) (*board.Board, bool) {
	if b == nil {
		return nil, false
	}
	c := b.Clone()
	return &c, true
}
