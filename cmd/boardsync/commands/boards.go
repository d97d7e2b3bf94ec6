package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/boardview"
	"github.com/dyluth/boardsync/internal/filter"
	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/pkg/board"
)

func newBoardsCmd(g *globalOptions) *cobra.Command {
	var (
		query  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List the boards of the workspace",
		Long: `List boards in creation order.

Examples:
  boardsync boards
  boardsync boards --query road
  boardsync boards --output=jsonl | jq .title`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutput(output)
			if err != nil {
				return err
			}

			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			return boardview.ListBoards(ctx, s.gateway, s.cfg.Workspace, query, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Only list boards whose title matches")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	return cmd
}

func newShowCmd(g *globalOptions) *cobra.Command {
	var (
		filterText string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "show BOARD",
		Short: "Show a board, optionally filtered",
		Long: `Show the groups and tasks of a board.

--filter is a case-insensitive regular expression matched against group
titles, task titles and the text of every column. A matching group title
keeps the whole group.

Examples:
  boardsync show 550e84
  boardsync show 550e84 --filter 'done|stuck'
  boardsync show 550e84 --output=jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutput(output)
			if err != nil {
				return err
			}

			ctx := context.Background()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.loadBoard(ctx, args[0]); err != nil {
				return err
			}

			if err := s.orch.SetFilter(board.FilterQuery{Txt: filterText}); err != nil {
				if errors.Is(err, filter.ErrInvalidPattern) {
					return printer.Error("invalid filter", err.Error(), []string{"--filter takes a regular expression, e.g. 'design|launch'"})
				}
				return err
			}

			filtered, _ := s.state.FilteredBoard()
			return boardview.ShowBoard(*filtered, s.registry, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&filterText, "filter", "f", "", "Regular expression to filter tasks by")
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or jsonl")

	return cmd
}

func parseOutput(output string) (boardview.OutputFormat, error) {
	format, err := boardview.ParseOutputFormat(output)
	if err != nil {
		return "", printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", output),
			[]string{"Valid formats: default, jsonl"},
		)
	}
	return format, nil
}
