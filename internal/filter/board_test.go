package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/pkg/board"
)

func designBoard() board.Board {
	return board.Board{
		ID:      "b1",
		Title:   "Brand",
		Columns: []string{"status"},
		Groups: []board.Group{
			{
				ID:    "g1",
				Title: "Design",
				Tasks: []board.Task{
					{ID: "t1", Title: "Logo", Columns: map[string]any{"status": "done"}},
					{ID: "t2", Title: "Palette", Columns: map[string]any{"status": "stuck"}},
				},
			},
		},
	}
}

func multiGroupBoard() board.Board {
	return board.Board{
		ID:      "b2",
		Title:   "Release",
		Columns: []string{"status", "members", "text"},
		Groups: []board.Group{
			{ID: "g1", Title: "Backend", Tasks: []board.Task{
				{ID: "t1", Title: "API pagination", Columns: map[string]any{"status": "done"}},
				{ID: "t2", Title: "Rate limits", Columns: map[string]any{
					"members": []any{map[string]any{"fullname": "Grace Hopper"}},
				}},
			}},
			{ID: "g2", Title: "Frontend", Tasks: []board.Task{
				{ID: "t3", Title: "Dark mode", Columns: map[string]any{"text": "<p>needs <b>API</b> token</p>"}},
			}},
			{ID: "g3", Title: "Docs", Tasks: []board.Task{
				{ID: "t4", Title: "Changelog", Columns: map[string]any{"status": "working on it"}},
			}},
			{ID: "g4", Title: "Ops", Tasks: []board.Task{
				{ID: "t5", Title: "Alerts", Columns: map[string]any{
					// stale key: not a declared column
					"priority": "api",
				}},
			}},
		},
	}
}

func taskIDs(b board.Board) []string {
	var ids []string
	for _, g := range b.Groups {
		for _, t := range g.Tasks {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func groupTitles(b board.Board) []string {
	var titles []string
	for _, g := range b.Groups {
		titles = append(titles, g.Title)
	}
	return titles
}

func TestDerive_EmptyQueryReproducesBoard(t *testing.T) {
	for _, b := range []board.Board{designBoard(), multiGroupBoard(), {ID: "x", Title: "empty"}} {
		got, err := Derive(b, board.FilterQuery{}, columns.Default())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
}

func TestDerive_EmptyGroupKeptForEmptyQuery(t *testing.T) {
	b := board.Board{ID: "b", Title: "x", Groups: []board.Group{{ID: "g", Title: "Empty", Tasks: []board.Task{}}}}
	got, err := Derive(b, board.FilterQuery{}, columns.Default())
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestDerive_TaskTitleMatch(t *testing.T) {
	got, err := Derive(designBoard(), board.FilterQuery{Txt: "logo"}, columns.Default())
	require.NoError(t, err)

	require.Len(t, got.Groups, 1)
	assert.Equal(t, "Design", got.Groups[0].Title)
	assert.Equal(t, []string{"t1"}, taskIDs(got))
}

func TestDerive_GroupTitleMatchKeepsAllTasks(t *testing.T) {
	got, err := Derive(designBoard(), board.FilterQuery{Txt: "design"}, columns.Default())
	require.NoError(t, err)

	require.Len(t, got.Groups, 1)
	assert.Equal(t, []string{"t1", "t2"}, taskIDs(got))
}

func TestDerive_ColumnValueMatch(t *testing.T) {
	got, err := Derive(designBoard(), board.FilterQuery{Txt: "STUCK"}, columns.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, taskIDs(got))
}

func TestDerive_DropsEmptyGroupsAndKeepsOrder(t *testing.T) {
	got, err := Derive(multiGroupBoard(), board.FilterQuery{Txt: "api"}, columns.Default())
	require.NoError(t, err)

	// Docs has no match; Ops only matches through a stale column key
	assert.Equal(t, []string{"Backend", "Frontend"}, groupTitles(got))
	assert.Equal(t, []string{"t1", "t3"}, taskIDs(got))
}

func TestDerive_MembersColumn(t *testing.T) {
	got, err := Derive(multiGroupBoard(), board.FilterQuery{Txt: "hopper"}, columns.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, taskIDs(got))
}

func TestDerive_RegexQuery(t *testing.T) {
	got, err := Derive(multiGroupBoard(), board.FilterQuery{Txt: "^(dark|alerts)"}, columns.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t5"}, taskIDs(got))
}

func TestDerive_MissingColumnValueNeverMatches(t *testing.T) {
	b := board.Board{
		ID:      "b",
		Title:   "x",
		Columns: []string{"status", "date"},
		Groups: []board.Group{{ID: "g", Title: "G", Tasks: []board.Task{
			{ID: "t1", Title: "has nothing"},
		}}},
	}
	got, err := Derive(b, board.FilterQuery{Txt: "^$"}, columns.Default())
	require.NoError(t, err)
	assert.Empty(t, got.Groups)
}

func TestDerive_UnknownColumnType(t *testing.T) {
	b := board.Board{
		ID:      "b",
		Title:   "x",
		Columns: []string{"mystery"},
		Groups: []board.Group{{ID: "g", Title: "G", Tasks: []board.Task{
			{ID: "t1", Title: "One", Columns: map[string]any{"mystery": "needle"}},
		}}},
	}
	got, err := Derive(b, board.FilterQuery{Txt: "needle"}, columns.Default())
	require.NoError(t, err)
	assert.Empty(t, got.Groups)

	got, err = Derive(b, board.FilterQuery{Txt: "needle"}, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Groups)
}

func TestDerive_InvalidPattern(t *testing.T) {
	_, err := Derive(designBoard(), board.FilterQuery{Txt: "("}, columns.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestDerive_DoesNotAliasSource(t *testing.T) {
	src := designBoard()
	got, err := Derive(src, board.FilterQuery{Txt: "design"}, columns.Default())
	require.NoError(t, err)

	got.Groups[0].Tasks[0].Title = "mutated"
	got.Groups[0].Tasks[0].Columns["status"] = "mutated"
	assert.Equal(t, "Logo", src.Groups[0].Tasks[0].Title)
	assert.Equal(t, "done", src.Groups[0].Tasks[0].Columns["status"])
}

func TestDerive_EverySurvivingTaskMatches(t *testing.T) {
	reg := columns.Default()
	for _, q := range []string{"a", "api", "do", "o", "zzz", "g"} {
		src := multiGroupBoard()
		got, err := Derive(src, board.FilterQuery{Txt: q}, reg)
		require.NoError(t, err)

		m, err := Compile(q)
		require.NoError(t, err)
		for _, g := range got.Groups {
			if m.Matches(g.Title) {
				continue
			}
			for _, task := range g.Tasks {
				assert.True(t, m.taskMatches(task, src.Columns, reg), "query %q kept %s", q, task.ID)
			}
		}
	}
}

func TestMatcher(t *testing.T) {
	m, err := Compile("Foo")
	require.NoError(t, err)
	assert.True(t, m.Matches("a FOO b"))
	assert.False(t, m.Matches("bar"))

	all, err := Compile("")
	require.NoError(t, err)
	assert.True(t, all.Matches(""))
	assert.True(t, all.Matches("anything"))
}
