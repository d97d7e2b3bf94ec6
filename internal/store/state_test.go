package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/internal/filter"
	"github.com/dyluth/boardsync/pkg/board"
)

type stubTasks struct {
	task board.Task
	err  error
	seen board.Board
}

func (s *stubTasks) EmptyTask(b board.Board) (board.Task, error) {
	s.seen = b
	return s.task, s.err
}

func newTestState() *State {
	return New(&stubTasks{task: board.Task{ID: "blank"}}, columns.Default())
}

func testBoard(id string) board.Board {
	return board.Board{
		ID:      id,
		Title:   "Board " + id,
		Columns: []string{"status"},
		Groups: []board.Group{
			{ID: "g1", Title: "Design", Tasks: []board.Task{
				{ID: "t1", Title: "Logo", Columns: map[string]any{"status": "done"}},
				{ID: "t2", Title: "Palette", Columns: map[string]any{"status": "stuck"}},
			}},
			{ID: "g2", Title: "Build", Tasks: []board.Task{
				{ID: "t3", Title: "Landing page", Columns: map[string]any{"status": "working"}},
			}},
		},
		Activities: []board.Activity{
			{ID: "a1", BoardID: id, TaskID: "t1", Type: board.ActivityTypeNewMsg, Content: board.ActivityContent{Txt: "first", LikedBy: []board.User{}}},
			{ID: "a2", BoardID: id, TaskID: "t1", Type: board.ActivityTypeStatusChange},
			{ID: "a3", BoardID: id, TaskID: "t2", Type: board.ActivityTypeNewMsg},
		},
	}
}

func activityIDs(b *board.Board) []string {
	ids := make([]string, 0, len(b.Activities))
	for _, a := range b.Activities {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestNew_EmptyState(t *testing.T) {
	s := newTestState()

	assert.Empty(t, s.Boards())
	_, ok := s.CurrentBoard()
	assert.False(t, ok)
	_, ok = s.FilteredBoard()
	assert.False(t, ok)
	assert.Equal(t, board.FilterQuery{}, s.FilterBy())
}

func TestReplaceBoardList(t *testing.T) {
	s := newTestState()
	in := []board.Board{testBoard("b1"), testBoard("b2")}
	s.ReplaceBoardList(in)

	in[0].Title = "mutated"
	got := s.Boards()
	require.Len(t, got, 2)
	assert.Equal(t, "Board b1", got[0].Title)

	got[1].Title = "mutated"
	assert.Equal(t, "Board b2", s.Boards()[1].Title)
}

func TestSelectBoard(t *testing.T) {
	t.Run("empty filter copies current into filtered view", func(t *testing.T) {
		s := newTestState()
		b := testBoard("b1")
		s.SelectBoard(b)

		cur, ok := s.CurrentBoard()
		require.True(t, ok)
		filtered, ok := s.FilteredBoard()
		require.True(t, ok)
		assert.Equal(t, b, *cur)
		assert.Equal(t, b, *filtered)
	})

	t.Run("active filter is applied to the newly selected board", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))
		require.NoError(t, s.ApplyFilter(board.FilterQuery{Txt: "logo"}))

		s.SelectBoard(testBoard("b2"))
		filtered, ok := s.FilteredBoard()
		require.True(t, ok)
		assert.Equal(t, "b2", filtered.ID)
		require.Len(t, filtered.Groups, 1)
		require.Len(t, filtered.Groups[0].Tasks, 1)
		assert.Equal(t, "t1", filtered.Groups[0].Tasks[0].ID)
	})

	t.Run("returned boards do not alias state", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))

		cur, _ := s.CurrentBoard()
		cur.Groups[0].Tasks[0].Title = "mutated"
		again, _ := s.CurrentBoard()
		assert.Equal(t, "Logo", again.Groups[0].Tasks[0].Title)
	})
}

func TestDeleteBoardFromList(t *testing.T) {
	s := newTestState()
	s.ReplaceBoardList([]board.Board{testBoard("b1"), testBoard("b2"), testBoard("b3")})

	s.DeleteBoardFromList("b2")
	got := s.Boards()
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID)
	assert.Equal(t, "b3", got[1].ID)

	s.DeleteBoardFromList("missing")
	assert.Len(t, s.Boards(), 2)
}

func TestReplaceBoard(t *testing.T) {
	t.Run("replaces in list and selects", func(t *testing.T) {
		s := newTestState()
		s.ReplaceBoardList([]board.Board{testBoard("b1"), testBoard("b2")})

		updated := testBoard("b2")
		updated.Title = "Renamed"
		require.NoError(t, s.ReplaceBoard(updated))

		assert.Equal(t, "Renamed", s.Boards()[1].Title)
		cur, ok := s.CurrentBoard()
		require.True(t, ok)
		assert.Equal(t, "Renamed", cur.Title)
	})

	t.Run("missing id leaves collection unchanged", func(t *testing.T) {
		s := newTestState()
		s.ReplaceBoardList([]board.Board{testBoard("b1")})
		before := s.Boards()

		err := s.ReplaceBoard(testBoard("ghost"))
		assert.ErrorIs(t, err, ErrBoardNotFound)
		assert.Equal(t, before, s.Boards())
		_, ok := s.CurrentBoard()
		assert.False(t, ok)
	})
}

func TestUpsertBoard(t *testing.T) {
	s := newTestState()
	s.ReplaceBoardList([]board.Board{testBoard("b1")})

	b := testBoard("b1")
	b.Title = "Updated"
	s.UpsertBoard(b)
	require.Len(t, s.Boards(), 1)
	assert.Equal(t, "Updated", s.Boards()[0].Title)

	s.UpsertBoard(testBoard("b2"))
	require.Len(t, s.Boards(), 2)
	assert.Equal(t, "b2", s.Boards()[1].ID)
}

func TestApplyFilter(t *testing.T) {
	t.Run("filters current board", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))

		require.NoError(t, s.ApplyFilter(board.FilterQuery{Txt: "design"}))
		filtered, _ := s.FilteredBoard()
		require.Len(t, filtered.Groups, 1)
		assert.Len(t, filtered.Groups[0].Tasks, 2)

		cur, _ := s.CurrentBoard()
		assert.Len(t, cur.Groups, 2, "canonical board must not be filtered")
		assert.Equal(t, "design", s.FilterBy().Txt)
	})

	t.Run("clearing the filter restores the full board", func(t *testing.T) {
		s := newTestState()
		b := testBoard("b1")
		s.SelectBoard(b)
		require.NoError(t, s.ApplyFilter(board.FilterQuery{Txt: "zzz"}))
		filtered, _ := s.FilteredBoard()
		assert.Empty(t, filtered.Groups)

		require.NoError(t, s.ApplyFilter(board.FilterQuery{}))
		filtered, _ = s.FilteredBoard()
		assert.Equal(t, b, *filtered)
	})

	t.Run("without a board the query is kept", func(t *testing.T) {
		s := newTestState()
		err := s.ApplyFilter(board.FilterQuery{Txt: "logo"})
		assert.ErrorIs(t, err, ErrNoCurrentBoard)
		assert.Equal(t, "logo", s.FilterBy().Txt)
	})

	t.Run("invalid pattern keeps previous query and view", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))
		require.NoError(t, s.ApplyFilter(board.FilterQuery{Txt: "logo"}))

		err := s.ApplyFilter(board.FilterQuery{Txt: "(["})
		assert.True(t, errors.Is(err, filter.ErrInvalidPattern))
		assert.Equal(t, "logo", s.FilterBy().Txt)
		filtered, _ := s.FilteredBoard()
		require.Len(t, filtered.Groups, 1)
		assert.Len(t, filtered.Groups[0].Tasks, 1)
	})
}

func TestPrependActivity(t *testing.T) {
	t.Run("always inserts at index 0", func(t *testing.T) {
		s := newTestState()
		b := testBoard("b1")
		b.Activities = nil
		s.SelectBoard(b)

		for _, id := range []string{"x1", "x2", "x3"} {
			require.NoError(t, s.PrependActivity(board.Activity{ID: id, BoardID: "b1"}))
			cur, _ := s.CurrentBoard()
			assert.Equal(t, id, cur.Activities[0].ID)
		}
		cur, _ := s.CurrentBoard()
		assert.Equal(t, []string{"x3", "x2", "x1"}, activityIDs(cur))
	})

	t.Run("keeps list entry and filtered view in step", func(t *testing.T) {
		s := newTestState()
		s.ReplaceBoardList([]board.Board{testBoard("b1")})
		s.SelectBoard(testBoard("b1"))

		require.NoError(t, s.PrependActivity(board.Activity{ID: "new"}))
		assert.Equal(t, "new", s.Boards()[0].Activities[0].ID)
		filtered, _ := s.FilteredBoard()
		assert.Equal(t, "new", filtered.Activities[0].ID)
	})

	t.Run("requires a selected board", func(t *testing.T) {
		s := newTestState()
		assert.ErrorIs(t, s.PrependActivity(board.Activity{ID: "x"}), ErrNoCurrentBoard)
	})
}

func TestToggleActivityLike(t *testing.T) {
	userX := board.User{ID: "ux", FullName: "User X", Activities: []board.Activity{{ID: "history"}}}

	t.Run("round trip restores liked-by", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))

		require.NoError(t, s.ToggleActivityLike("a1", userX))
		cur, _ := s.CurrentBoard()
		require.Len(t, cur.Activities[0].Content.LikedBy, 1)
		assert.Equal(t, "ux", cur.Activities[0].Content.LikedBy[0].ID)
		assert.Nil(t, cur.Activities[0].Content.LikedBy[0].Activities, "liker must be stripped")

		require.NoError(t, s.ToggleActivityLike("a1", userX))
		cur, _ = s.CurrentBoard()
		assert.Equal(t, []board.User{}, cur.Activities[0].Content.LikedBy)
	})

	t.Run("preserves other likers", func(t *testing.T) {
		s := newTestState()
		b := testBoard("b1")
		b.Activities[0].Content.LikedBy = []board.User{{ID: "u1"}, {ID: "u2"}}
		s.SelectBoard(b)

		require.NoError(t, s.ToggleActivityLike("a1", userX))
		require.NoError(t, s.ToggleActivityLike("a1", userX))
		cur, _ := s.CurrentBoard()
		assert.Equal(t, []board.User{{ID: "u1"}, {ID: "u2"}}, cur.Activities[0].Content.LikedBy)
	})

	t.Run("missing activity", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))
		before, _ := s.CurrentBoard()

		assert.ErrorIs(t, s.ToggleActivityLike("nope", userX), ErrActivityNotFound)
		after, _ := s.CurrentBoard()
		assert.Equal(t, before, after)
	})

	t.Run("requires a selected board", func(t *testing.T) {
		s := newTestState()
		assert.ErrorIs(t, s.ToggleActivityLike("a1", userX), ErrNoCurrentBoard)
	})
}

func TestRemoveActivity(t *testing.T) {
	t.Run("removes and reports index", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))

		removed, idx, err := s.RemoveActivity("a2")
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.Equal(t, "a2", removed.ID)
		assert.Equal(t, 1, idx)

		cur, _ := s.CurrentBoard()
		assert.Equal(t, []string{"a1", "a3"}, activityIDs(cur))
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		s := newTestState()
		b := testBoard("b1")
		b.Activities = b.Activities[:2]
		s.SelectBoard(b)

		removed, idx, err := s.RemoveActivity("missing-id")
		require.NoError(t, err)
		assert.Nil(t, removed)
		assert.Equal(t, -1, idx)
		cur, _ := s.CurrentBoard()
		assert.Equal(t, []string{"a1", "a2"}, activityIDs(cur))
	})

	t.Run("insert at restores original position", func(t *testing.T) {
		s := newTestState()
		s.SelectBoard(testBoard("b1"))

		removed, idx, err := s.RemoveActivity("a2")
		require.NoError(t, err)
		require.NoError(t, s.InsertActivityAt(*removed, idx))

		cur, _ := s.CurrentBoard()
		assert.Equal(t, []string{"a1", "a2", "a3"}, activityIDs(cur))
	})
}

func TestInsertActivityAt_ClampsIndex(t *testing.T) {
	s := newTestState()
	s.SelectBoard(testBoard("b1"))

	require.NoError(t, s.InsertActivityAt(board.Activity{ID: "tail"}, 99))
	require.NoError(t, s.InsertActivityAt(board.Activity{ID: "head"}, -5))

	cur, _ := s.CurrentBoard()
	assert.Equal(t, []string{"head", "a1", "a2", "a3", "tail"}, activityIDs(cur))
}

func TestSetColumns(t *testing.T) {
	s := newTestState()
	s.SelectBoard(testBoard("b1"))
	require.NoError(t, s.ApplyFilter(board.FilterQuery{Txt: "stuck"}))

	filtered, _ := s.FilteredBoard()
	require.Len(t, filtered.Groups, 1)

	// Dropping the status column orphans the task values; they stop matching
	require.NoError(t, s.SetColumns([]string{"priority"}))
	cur, _ := s.CurrentBoard()
	assert.Equal(t, []string{"priority"}, cur.Columns)
	assert.Equal(t, "stuck", cur.Groups[0].Tasks[1].Columns["status"])

	filtered, _ = s.FilteredBoard()
	assert.Empty(t, filtered.Groups)

	assert.ErrorIs(t, New(nil, nil).SetColumns(nil), ErrNoCurrentBoard)
}

func TestActivitiesForTask(t *testing.T) {
	s := newTestState()
	got := s.ActivitiesForTask("t1", board.ActivityTypeNewMsg)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	s.SelectBoard(testBoard("b1"))
	got = s.ActivitiesForTask("t1", board.ActivityTypeNewMsg)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)

	assert.Empty(t, s.ActivitiesForTask("t9", board.ActivityTypeNewMsg))
}

func TestEmptyTask(t *testing.T) {
	tasks := &stubTasks{task: board.Task{ID: "blank"}}
	s := New(tasks, columns.Default())

	_, err := s.EmptyTask()
	assert.ErrorIs(t, err, ErrNoCurrentBoard)

	s.SelectBoard(testBoard("b1"))
	task, err := s.EmptyTask()
	require.NoError(t, err)
	assert.Equal(t, "blank", task.ID)
	assert.Equal(t, "b1", tasks.seen.ID)

	fallback := New(nil, nil)
	fallback.SelectBoard(testBoard("b1"))
	task, err = fallback.EmptyTask()
	require.NoError(t, err)
	assert.Contains(t, task.Columns, "status")
}

func TestReset(t *testing.T) {
	s := newTestState()
	s.ReplaceBoardList([]board.Board{testBoard("b1")})
	s.SelectBoard(testBoard("b1"))
	require.NoError(t, s.ApplyFilter(board.FilterQuery{Txt: "x"}))

	s.Reset()
	assert.Empty(t, s.Boards())
	_, ok := s.CurrentBoard()
	assert.False(t, ok)
	_, ok = s.FilteredBoard()
	assert.False(t, ok)
	assert.Empty(t, s.FilterBy().Txt)
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestState()
	s.ReplaceBoardList([]board.Board{testBoard("b1")})
	s.SelectBoard(testBoard("b1"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.PrependActivity(board.Activity{ID: "c"})
			_ = s.ApplyFilter(board.FilterQuery{Txt: "logo"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.FilteredBoard()
			_ = s.Boards()
		}()
	}
	wg.Wait()

	cur, _ := s.CurrentBoard()
	assert.Len(t, cur.Activities, 23)
	assert.Len(t, s.Boards()[0].Activities, 23)
}
