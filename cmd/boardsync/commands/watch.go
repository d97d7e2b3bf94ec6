package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/boardview"
	"github.com/dyluth/boardsync/internal/filter"
	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/internal/watch"
	"github.com/dyluth/boardsync/pkg/board"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var (
		filterText string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch BOARD",
		Short: "Follow a board live as other sessions change it",
		Long: `Show a board and redraw it whenever another session saves it,
adds an update or changes the board list.

Requires store.redis_url, which carries the change notifications.

Examples:
  boardsync watch 550e84
  boardsync watch 550e84 --filter stuck`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var s *session
			refresher := watch.NewRefresher(interval, func() { renderWatched(s, out) })

			var err error
			s, err = openSession(ctx, g, func(ev *board.Event) {
				log.WithFields(log.Fields{"event": ev.Name, "board": ev.BoardID}).Debug("board changed")
				refresher.Notify()
			})
			if err != nil {
				return err
			}
			defer s.Close()

			if s.client == nil {
				return printer.Error(
					"live updates unavailable",
					"watch listens for changes on Redis, and no store.redis_url is configured.",
					[]string{fmt.Sprintf("Add store.redis_url to %s", g.configPath)},
				)
			}

			if _, err := s.loadBoard(ctx, args[0]); err != nil {
				return err
			}
			if filterText != "" {
				if err := s.orch.SetFilter(board.FilterQuery{Txt: filterText}); err != nil {
					if errors.Is(err, filter.ErrInvalidPattern) {
						return printer.Error("invalid filter", err.Error(), []string{"Use a valid regular expression"})
					}
					return err
				}
			}
			if err := s.orch.LoadBoards(ctx); err != nil {
				log.WithError(err).Warn("could not load board list")
			}

			sub, err := s.client.Subscribe(ctx)
			if err != nil {
				return fmt.Errorf("failed to subscribe to board events: %w", err)
			}
			defer sub.Close()

			renderWatched(s, out)

			errCh := make(chan error, 1)
			go func() {
				errCh <- s.orch.Run(ctx, sub)
			}()
			refreshDone := make(chan struct{})
			go func() {
				defer close(refreshDone)
				_ = refresher.Run(ctx)
			}()

			var runErr error
			select {
			case <-ctx.Done():
				<-errCh
			case runErr = <-errCh:
				stop()
			}
			<-refreshDone

			if runErr != nil {
				return fmt.Errorf("event loop stopped: %w", runErr)
			}

			printer.Info("Stopped watching\n")
			return nil
		},
	}

	cmd.Flags().StringVarP(&filterText, "filter", "f", "", "Only show tasks matching this pattern")
	cmd.Flags().DurationVar(&interval, "interval", watch.DefaultInterval, "Minimum time between redraws")

	return cmd
}

func renderWatched(s *session, w io.Writer) {
	if s == nil {
		return
	}
	filtered, ok := s.state.FilteredBoard()
	if !ok {
		fmt.Fprintln(w, "Board was removed")
		return
	}
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		fmt.Fprint(w, "\033[H\033[2J")
	}
	if err := boardview.ShowBoard(*filtered, s.registry, boardview.OutputFormatDefault, w); err != nil {
		log.WithError(err).Warn("failed to render board")
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
