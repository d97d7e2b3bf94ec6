package boardview

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/boardsync/internal/columns"
	"github.com/dyluth/boardsync/pkg/board"
)

// FormatBoardList writes boards as a table with columns ID, FAV, GROUPS, TASKS,
// AGE and TITLE. Returns the number of boards formatted.
func FormatBoardList(w io.Writer, boards []board.Board, workspace string) int {
	if len(boards) == 0 {
		fmt.Fprintf(w, "No boards found in workspace '%s'\n", workspace)
		return 0
	}

	fmt.Fprintf(w, "Boards in workspace '%s':\n\n", workspace)

	fmt.Fprintf(w, "%-10s %-3s %-6s %-6s %-8s %s\n",
		"ID", "FAV", "GROUPS", "TASKS", "AGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-3s %-6s %-6s %-8s %s\n",
		"----------", "---", "------", "------", "--------", "----------------------------------------")

	for _, b := range boards {
		fmt.Fprintf(w, "%-10s %-3s %-6d %-6d %-8s %s\n",
			formatID(b.ID),
			formatFavorite(b.IsFavorite),
			len(b.Groups),
			countTasks(b),
			formatTimestamp(b.CreatedAtMs),
			truncate(b.Title, 40),
		)
	}

	noun := "board"
	if len(boards) != 1 {
		noun = "boards"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(boards), noun)

	return len(boards)
}

// FormatBoard writes a board group by group. Each task row shows its short id,
// title and the text rendering of every declared column.
func FormatBoard(w io.Writer, b board.Board, lookup columns.Lookup) {
	fmt.Fprintf(w, "%s (%s)\n", b.Title, formatID(b.ID))
	if desc := firstLine(b.Description); desc != "" {
		fmt.Fprintf(w, "%s\n", desc)
	}

	if len(b.Groups) == 0 {
		fmt.Fprintf(w, "\nNo matching tasks\n")
		return
	}

	for _, g := range b.Groups {
		fmt.Fprintf(w, "\n▸ %s\n", g.Title)
		if len(g.Tasks) == 0 {
			fmt.Fprintf(w, "  (no tasks)\n")
			continue
		}

		header := []string{fmt.Sprintf("  %-10s %-30s", "ID", "TASK")}
		for _, col := range b.Columns {
			header = append(header, fmt.Sprintf("%-16s", strings.ToUpper(col)))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(header, " "), " "))

		for _, t := range g.Tasks {
			row := []string{fmt.Sprintf("  %-10s %-30s", formatID(t.ID), truncate(t.Title, 30))}
			for _, col := range b.Columns {
				row = append(row, fmt.Sprintf("%-16s", formatCell(columns.Render(lookup, col, t.Columns[col]))))
			}
			fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
		}
	}
}

// FormatActivities writes activities newest first as a table.
// Returns the number of activities formatted.
func FormatActivities(w io.Writer, activities []board.Activity) int {
	if len(activities) == 0 {
		fmt.Fprintln(w, "No activity found")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-14s %-16s %-8s %-5s %s\n",
		"ID", "TYPE", "BY", "AGE", "LIKES", "TEXT")
	fmt.Fprintf(w, "%-10s %-14s %-16s %-8s %-5s %s\n",
		"----------", "--------------", "----------------", "--------", "-----", "----------------------------------------")

	for _, a := range activities {
		fmt.Fprintf(w, "%-10s %-14s %-16s %-8s %-5d %s\n",
			formatID(a.ID),
			truncate(a.Type, 14),
			formatAuthor(a.CreatedBy),
			formatTimestamp(a.CreatedAtMs),
			len(a.Content.LikedBy),
			formatText(a.Content.Txt),
		)
	}

	noun := "activity"
	if len(activities) != 1 {
		noun = "activities"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(activities), noun)

	return len(activities)
}

// FormatJSONL writes items as line-delimited JSON, one object per line.
func FormatJSONL[T any](w io.Writer, items []T) error {
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatID truncates an id to its first 8 characters for compact display.
func formatID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatFavorite(fav bool) string {
	if fav {
		return "★"
	}
	return "-"
}

func formatAuthor(u board.User) string {
	switch {
	case u.FullName != "":
		return truncate(u.FullName, 16)
	case u.Username != "":
		return truncate(u.Username, 16)
	case u.ID != "":
		return formatID(u.ID)
	}
	return "-"
}

func formatCell(s string) string {
	if s == "" {
		return "-"
	}
	return truncate(s, 16)
}

// formatText shows the first non-empty line of a message, at most 40 characters.
func formatText(txt string) string {
	line := firstLine(txt)
	if line == "" {
		return "-"
	}
	return truncate(line, 40)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// truncate shortens s to max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func countTasks(b board.Board) int {
	n := 0
	for _, g := range b.Groups {
		n += len(g.Tasks)
	}
	return n
}

// formatTimestamp formats a Unix millisecond timestamp as relative age, e.g. "2m ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Since(time.UnixMilli(timestampMs))

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
