// Package boardview renders boards, board lists and activity feeds for the CLI.
package boardview

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/internal/filter"
	"github.com/dyluth/boardsync/pkg/board"
)

// OutputFormat specifies how list output is written.
type OutputFormat string

const (
	// OutputFormatDefault uses a human-readable table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, "":
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Querier lists boards from a persistence gateway.
type Querier interface {
	Query(ctx context.Context, q *board.BoardQuery) ([]board.Board, error)
}

// ListBoards queries the gateway and writes the result. An empty txt lists
// every board in creation order.
func ListBoards(ctx context.Context, q Querier, workspace, txt string, format OutputFormat, w io.Writer) error {
	var query *board.BoardQuery
	if txt != "" {
		query = &board.BoardQuery{Txt: txt}
	}

	boards, err := q.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query boards: %w", err)
	}

	switch format {
	case OutputFormatDefault:
		FormatBoardList(w, boards, workspace)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, boards); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// ShowBoard writes a (typically filtered) board. JSONL output writes one task
// per line with its group id attached.
func ShowBoard(b board.Board, lookup columns.Lookup, format OutputFormat, w io.Writer) error {
	switch format {
	case OutputFormatDefault:
		FormatBoard(w, b, lookup)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, taskRecords(b)); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

// ListActivities filters activities, sorts them newest first and writes them.
func ListActivities(activities []board.Activity, criteria *filter.Criteria, format OutputFormat, w io.Writer) error {
	var selected []board.Activity
	if criteria != nil && criteria.HasFilters() {
		selected = criteria.Activities(activities)
	} else {
		selected = append([]board.Activity(nil), activities...)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].CreatedAtMs > selected[j].CreatedAtMs
	})

	switch format {
	case OutputFormatDefault:
		FormatActivities(w, selected)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, selected); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

type taskRecord struct {
	GroupID    string `json:"groupId"`
	GroupTitle string `json:"groupTitle"`
	board.Task
}

func taskRecords(b board.Board) []taskRecord {
	out := make([]taskRecord, 0, countTasks(b))
	for _, g := range b.Groups {
		for _, t := range g.Tasks {
			out = append(out, taskRecord{GroupID: g.ID, GroupTitle: g.Title, Task: t})
		}
	}
	return out
}
