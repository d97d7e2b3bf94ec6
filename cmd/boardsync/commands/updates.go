package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/boardview"
	"github.com/dyluth/boardsync/internal/filter"
	"github.com/dyluth/boardsync/internal/orchestrator"
	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/internal/timespec"
	"github.com/dyluth/boardsync/pkg/board"
)

func newCommentCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "comment BOARD TASK TEXT",
		Short: "Post an update on a task",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.loadBoard(ctx, args[0]); err != nil {
				return err
			}

			msg, err := s.orch.SaveUpdate(ctx, args[1], args[2])
			if err != nil {
				return notLoggedIn(err, "failed to post update")
			}

			printer.Success("Posted update %s\n", msg.ID)
			return nil
		},
	}
}

func newLikeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "like BOARD UPDATE",
		Short: "Like an update, or take the like back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			cur, err := s.loadBoard(ctx, args[0])
			if err != nil {
				return err
			}
			activityID, err := resolveActivity(cur, args[1])
			if err != nil {
				return err
			}

			if err := s.orch.ToggleUpdateLike(ctx, activityID); err != nil {
				return notLoggedIn(err, "failed to toggle like")
			}

			if updated, ok := s.state.CurrentBoard(); ok {
				if i := updated.FindActivity(activityID); i >= 0 {
					printer.Success("Update %s now has %d like(s)\n", formatShort(activityID), len(updated.Activities[i].Content.LikedBy))
				}
			}
			return nil
		},
	}
}

func newRemoveUpdateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-update BOARD UPDATE",
		Short: "Delete an update",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			cur, err := s.loadBoard(ctx, args[0])
			if err != nil {
				return err
			}
			activityID, err := resolveActivity(cur, args[1])
			if err != nil {
				return err
			}

			if err := s.orch.RemoveUpdate(ctx, activityID); err != nil {
				return fmt.Errorf("failed to remove update: %w", err)
			}

			printer.Success("Removed update %s\n", formatShort(activityID))
			return nil
		},
	}
}

func newActivityCmd(g *globalOptions) *cobra.Command {
	var (
		activityType string
		since        string
		until        string
		author       string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "activity BOARD [TASK]",
		Short: "List the activity log of a board or task",
		Long: `List a board's activity, newest first.

Time Filters:
  --since  - Show activity after this time
  --until  - Show activity before this time

Content Filters:
  --type   - Filter by activity type (glob pattern: "new-*", "status-change")
  --author - Filter by author user id

Examples:
  boardsync activity 550e84 --since=2h
  boardsync activity 550e84 t1 --type=new-msg --output=jsonl`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutput(output)
			if err != nil {
				return err
			}

			sinceMS, untilMS, err := timespec.ParseRange(since, until)
			if err != nil {
				return printer.Error(
					"invalid time filter",
					err.Error(),
					[]string{"Use duration format like '1h30m' or '2d', or RFC3339 like '2025-10-29T13:00:00Z'"},
				)
			}

			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			cur, err := s.loadBoard(ctx, args[0])
			if err != nil {
				return err
			}

			activities := cur.Activities
			if len(args) == 2 {
				activities = tasksActivities(cur.Activities, args[1])
			}

			criteria := &filter.Criteria{
				SinceTimestampMs: sinceMS,
				UntilTimestampMs: untilMS,
				TypeGlob:         activityType,
				AuthorID:         author,
			}
			return boardview.ListActivities(activities, criteria, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&activityType, "type", "", "Filter by activity type (glob pattern)")
	cmd.Flags().StringVar(&since, "since", "", "Show activity after time (duration, date or RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Show activity before time (duration, date or RFC3339)")
	cmd.Flags().StringVar(&author, "author", "", "Filter by author user id")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	return cmd
}

func tasksActivities(all []board.Activity, taskID string) []board.Activity {
	out := []board.Activity{}
	for _, a := range all {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out
}

// resolveActivity matches an update id or unique id prefix on the board.
func resolveActivity(b *board.Board, ref string) (string, error) {
	var matches []string
	for _, a := range b.Activities {
		if a.ID == ref {
			return a.ID, nil
		}
		if strings.HasPrefix(a.ID, ref) {
			matches = append(matches, a.ID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", printer.Error(
			fmt.Sprintf("update '%s' not found", ref),
			fmt.Sprintf("Board '%s' has no update with that id.", b.Title),
			[]string{fmt.Sprintf("List updates:\n  boardsync activity %s", b.ID)},
		)
	default:
		return "", printer.Error(
			fmt.Sprintf("ambiguous update id '%s'", ref),
			fmt.Sprintf("%d updates match that prefix.", len(matches)),
			[]string{"Use a longer prefix"},
		)
	}
}

func notLoggedIn(err error, action string) error {
	if errors.Is(err, orchestrator.ErrNotLoggedIn) {
		return printer.Error(
			"not logged in",
			"Updates and likes are recorded under the session user.",
			[]string{"Log in first:\n  boardsync login USER_ID --name \"Full Name\""},
		)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func formatShort(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
