package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/pkg/board"
)

func newAddTaskCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-task BOARD GROUP TITLE",
		Short: "Append a task to a group",
		Long: `Append a new task with an empty value for every column. GROUP is a
group id or title (case-insensitive).

Example:
  boardsync add-task 550e84 Backlog "Write brief"`,
		Args: cobra.ExactArgs(3),
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

			gi := findGroup(cur.Groups, args[1])
			if gi < 0 {
				return printer.Error(
					fmt.Sprintf("group '%s' not found", args[1]),
					fmt.Sprintf("Board '%s' has no group with that id or title.", cur.Title),
					[]string{fmt.Sprintf("Show the board:\n  boardsync show %s", args[0])},
				)
			}

			task, err := s.state.EmptyTask()
			if err != nil {
				return fmt.Errorf("failed to create task: %w", err)
			}
			task.Title = args[2]

			updated := cur.Clone()
			updated.Groups[gi].Tasks = append(updated.Groups[gi].Tasks, task)
			saved, err := s.orch.SaveBoard(ctx, updated)
			if err != nil {
				return fmt.Errorf("failed to save board: %w", err)
			}

			if user, ok := s.identity.CurrentUser(); ok {
				_, err := s.orch.AddActivity(ctx, board.Activity{
					BoardID:   saved.ID,
					TaskID:    task.ID,
					Type:      board.ActivityTypeTaskCreated,
					CreatedBy: user.Stripped(),
					Content:   board.ActivityContent{Txt: task.Title},
				})
				if err != nil {
					printer.Warning("Task added but its activity could not be recorded: %v\n", err)
				}
			}

			printer.Success("Added task %s to %s\n", task.ID, saved.Groups[gi].Title)
			return nil
		},
	}
}

func findGroup(groups []board.Group, ref string) int {
	for i, g := range groups {
		if g.ID == ref {
			return i
		}
	}
	for i, g := range groups {
		if strings.EqualFold(g.Title, ref) {
			return i
		}
	}
	return -1
}

func newDuplicateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate BOARD",
		Short: "Copy a board without its activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.resolveBoard(ctx, args[0])
			if err != nil {
				return err
			}

			dup, err := s.orch.DuplicateBoard(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to duplicate board: %w", err)
			}

			printer.Success("Created '%s' (%s)\n", dup.Title, dup.ID)
			return nil
		},
	}
}

func newRemoveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm BOARD",
		Short: "Delete a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.resolveBoard(ctx, args[0])
			if err != nil {
				return err
			}

			if err := s.orch.RemoveBoard(ctx, id); err != nil {
				return fmt.Errorf("failed to remove board: %w", err)
			}

			printer.Success("Removed board %s\n", id)
			return nil
		},
	}
}

func newRenameCmd(g *globalOptions) *cobra.Command {
	var (
		title       string
		description string
		favorite    bool
	)

	cmd := &cobra.Command{
		Use:   "rename BOARD",
		Short: "Change a board's title, description or favourite flag",
		Long: `Change board details. Only the flags given are changed.

Examples:
  boardsync rename 550e84 --title "Roadmap 2026"
  boardsync rename 550e84 --favorite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("title") && !flags.Changed("description") && !flags.Changed("favorite") {
				return printer.Error(
					"nothing to change",
					"No board details were given.",
					[]string{"Pass at least one of --title, --description or --favorite"},
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

			mini := board.MiniBoard{ID: cur.ID, Title: cur.Title, Description: cur.Description, IsFavorite: cur.IsFavorite}
			if flags.Changed("title") {
				mini.Title = title
			}
			if flags.Changed("description") {
				mini.Description = description
			}
			if flags.Changed("favorite") {
				mini.IsFavorite = favorite
			}

			saved, err := s.orch.SaveMiniBoard(ctx, mini)
			if err != nil {
				return fmt.Errorf("failed to save board: %w", err)
			}

			printer.Success("Updated '%s'\n", saved.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Mark (or with =false unmark) as favourite")

	return cmd
}
