package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dyluth/boardsync/internal/store"
	"github.com/dyluth/boardsync/pkg/board"
)

// EventSource delivers inbound real-time events. *board.Subscription implements it.
type EventSource interface {
	Events() <-chan *board.Event
	Errors() <-chan error
}

// Senders emit before persisting, so an event can arrive ahead of its write.
// Peers reload and retry briefly while the stored board does not show it yet.
var (
	reloadAttempts = 3
	reloadDelay    = 50 * time.Millisecond
)

// HandleEvent applies an event emitted by another session.
//
//   - board-updated for the current board reloads it until it matches the push
//   - board-list-updated reloads the board list
//   - task-updated for the current board reloads it until the new activity shows
//
// Payloads are never applied directly: the sender emits before persisting, so
// only the gateway holds ids and knows whether the write succeeded. Reloads keep
// the active filter. Events for other boards and unknown events are ignored.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev *board.Event) error {
	if ev == nil {
		return nil
	}
	entry := o.logger.WithFields(log.Fields{"event": ev.Name, "board": ev.BoardID, "origin": ev.Origin})

	switch ev.Name {
	case board.EventBoardListUpdated:
		return o.LoadBoards(ctx)

	case board.EventBoardUpdated:
		if !o.isCurrent(ev.BoardID) {
			return nil
		}
		pushed, err := ev.DecodeBoard()
		if err != nil {
			entry.WithError(err).Warn("undecodable board, reloading")
			return o.reloadCurrent(ctx, ev.BoardID)
		}
		want, _ := json.Marshal(pushed)
		return o.reloadUntil(ctx, ev.BoardID, entry, func(cur *board.Board) bool {
			got, err := json.Marshal(cur)
			return err == nil && bytes.Equal(got, want)
		})

	case board.EventTaskUpdated:
		if !o.isCurrent(ev.BoardID) {
			return nil
		}
		draft, err := ev.DecodeActivity()
		if err != nil {
			entry.WithError(err).Warn("undecodable activity, reloading board")
			return o.reloadCurrent(ctx, ev.BoardID)
		}
		before := o.countLike(draft)
		return o.reloadUntil(ctx, ev.BoardID, entry, func(*board.Board) bool {
			return o.countLike(draft) > before
		})
	}

	entry.Debug("ignoring unknown event")
	return nil
}

// reloadUntil reloads the current board until landed reports the sender's
// write as visible. A write that failed never shows up; the last reload then
// stands as the stored truth.
func (o *Orchestrator) reloadUntil(ctx context.Context, boardID string, entry *log.Entry, landed func(cur *board.Board) bool) error {
	for attempt := 1; ; attempt++ {
		if err := o.reloadCurrent(ctx, boardID); err != nil {
			return err
		}
		if cur, ok := o.state.CurrentBoard(); ok && landed(cur) {
			entry.Debug("peer change applied")
			return nil
		}
		if attempt >= reloadAttempts {
			entry.Warn("peer change not found in stored board")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reloadDelay):
		}
	}
}

// reloadCurrent fetches a board, replaces its cached list entry and selects it.
func (o *Orchestrator) reloadCurrent(ctx context.Context, boardID string) error {
	b, err := o.gw.GetByID(ctx, boardID)
	if err != nil {
		return o.fail("reload board", boardID, err)
	}
	if err := o.state.ReplaceBoard(b); err != nil {
		if !errors.Is(err, store.ErrBoardNotFound) {
			return err
		}
		o.state.SelectBoard(b)
	}
	return nil
}

// countLike counts current-board activities matching draft on everything the
// sender sets before the gateway stamps id and time.
func (o *Orchestrator) countLike(draft board.Activity) int {
	cur, ok := o.state.CurrentBoard()
	if !ok {
		return 0
	}
	n := 0
	for _, a := range cur.Activities {
		if a.TaskID == draft.TaskID && a.Type == draft.Type &&
			a.CreatedBy.ID == draft.CreatedBy.ID && a.Content.Txt == draft.Content.Txt {
			n++
		}
	}
	return n
}

// Run consumes events until ctx is cancelled or the source closes.
// Events carrying this session's origin are skipped. Handler failures are
// logged and do not stop the loop. Options.OnEvent sees every applied event.
func (o *Orchestrator) Run(ctx context.Context, src EventSource) error {
	events := src.Events()
	errs := src.Errors()

	for {
		select {
		case <-ctx.Done():
			o.logger.Debug("event loop shutting down")
			return nil

		case ev, ok := <-events:
			if !ok {
				o.logger.Debug("event subscription closed")
				return nil
			}
			if o.opts.Origin != "" && ev.Origin == o.opts.Origin {
				continue
			}
			if err := o.HandleEvent(ctx, ev); err != nil {
				o.logger.WithError(err).WithField("event", ev.Name).Error("failed to apply event")
				continue
			}
			if o.opts.OnEvent != nil {
				o.opts.OnEvent(ev)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			o.logger.WithError(err).Warn("event subscription error")
		}
	}
}

func (o *Orchestrator) isCurrent(boardID string) bool {
	if boardID == "" {
		return false
	}
	cur, ok := o.state.CurrentBoard()
	return ok && cur.ID == boardID
}
