// Package testutil provides shared fixtures for tests that need a live board
// client without an external Redis.
package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/boardsync/pkg/board"
)

// NewBoardClient starts an in-process miniredis and returns a client for
// workspace backed by it. Both are closed when the test ends.
func NewBoardClient(t *testing.T, workspace string) (*board.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, workspace)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

// SeedBoards saves boards in order and returns them as stored.
func SeedBoards(t *testing.T, client *board.Client, boards ...board.Board) []board.Board {
	t.Helper()

	ctx := context.Background()
	saved := make([]board.Board, 0, len(boards))
	for _, b := range boards {
		s, err := client.Save(ctx, b)
		require.NoError(t, err)
		saved = append(saved, s)
	}
	return saved
}

// SampleBoard returns a two-group board with status and members columns.
func SampleBoard(title string, createdAtMs int64) board.Board {
	return board.Board{
		Title:       title,
		Columns:     []string{"status", "members"},
		CreatedAtMs: createdAtMs,
		Groups: []board.Group{
			{ID: "g1", Title: "Backlog", Tasks: []board.Task{
				{ID: "t1", Title: "Write brief", Columns: map[string]any{"status": map[string]any{"label": "Working on it"}}},
				{ID: "t2", Title: "Book venue", Columns: map[string]any{"status": map[string]any{"label": "Done"}}},
			}},
			{ID: "g2", Title: "Launch", Tasks: []board.Task{
				{ID: "t3", Title: "Press release", Columns: map[string]any{
					"members": []any{map[string]any{"_id": "u1", "fullname": "Ada Lovelace"}},
				}},
			}},
		},
	}
}
