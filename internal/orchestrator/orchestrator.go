// Package orchestrator sequences board actions across the local state container,
// the persistence gateway and the real-time notifier.
//
// Each action reads and writes state through individually atomic primitives; no
// lock spans an action. Optimistic local mutations (likes, update removal) are
// reverted when the gateway rejects the follow-up save. Notifications are
// best-effort: a failed emit is logged and never aborts an action.
package orchestrator

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dyluth/boardsync/internal/store"
	"github.com/dyluth/boardsync/pkg/board"
)

// Gateway is the persistence service for boards. Query returns boards in
// creation order, narrowed by board.MatchTitles when the query carries text.
type Gateway interface {
	Query(ctx context.Context, q *board.BoardQuery) ([]board.Board, error)
	GetByID(ctx context.Context, boardID string) (board.Board, error)
	Save(ctx context.Context, b board.Board) (board.Board, error)
	Remove(ctx context.Context, boardID string) error
	AddActivity(ctx context.Context, a board.Activity) (board.Activity, error)
}

// Notifier broadcasts change events to other sessions.
type Notifier interface {
	Emit(ctx context.Context, event string, payload any) error
}

// Identity provides the session user.
type Identity interface {
	CurrentUser() (board.User, bool)
	Update(ctx context.Context, u board.User) (board.User, error)
}

// Options tunes orchestrator behaviour.
type Options struct {
	// ReloadListAfterSave refetches the whole board list after SaveBoard.
	// When false the saved board is patched into the cached list instead.
	ReloadListAfterSave bool

	// Origin is this session's notifier id. Inbound events with the same
	// origin are ignored by Run.
	Origin string

	// Logger defaults to the logrus standard logger.
	Logger *log.Logger

	// OnEvent, when set, is called by Run after an inbound event was applied.
	OnEvent func(ev *board.Event)
}

// Orchestrator runs board actions for one session.
type Orchestrator struct {
	state    *store.State
	gw       Gateway
	notifier Notifier
	identity Identity
	opts     Options
	logger   *log.Logger
}

// New creates an orchestrator over the given collaborators.
func New(state *store.State, gw Gateway, notifier Notifier, identity Identity, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Orchestrator{
		state:    state,
		gw:       gw,
		notifier: notifier,
		identity: identity,
		opts:     opts,
		logger:   logger,
	}
}

// State returns the state container driven by this orchestrator.
func (o *Orchestrator) State() *store.State {
	return o.state
}

// LoadBoards fetches every board into the cached list.
func (o *Orchestrator) LoadBoards(ctx context.Context) error {
	boards, err := o.gw.Query(ctx, nil)
	if err != nil {
		return o.fail("load boards", "", err)
	}
	o.state.ReplaceBoardList(boards)
	o.logger.WithField("count", len(boards)).Debug("boards loaded")
	return nil
}

// LoadBoard fetches a board and makes it the current board.
func (o *Orchestrator) LoadBoard(ctx context.Context, boardID string) error {
	b, err := o.gw.GetByID(ctx, boardID)
	if err != nil {
		return o.fail("load board", boardID, err)
	}
	o.state.SelectBoard(b)
	o.logger.WithField("board", boardID).Debug("board loaded")
	return nil
}

// SaveBoard persists a board. Peers are notified before the write, so on failure
// they may already have seen a change that was never stored.
func (o *Orchestrator) SaveBoard(ctx context.Context, b board.Board) (board.Board, error) {
	o.emit(ctx, board.EventBoardUpdated, b)
	o.emit(ctx, board.EventBoardListUpdated, nil)

	saved, err := o.gw.Save(ctx, b)
	if err != nil {
		return board.Board{}, o.fail("save board", b.ID, err)
	}
	o.state.SelectBoard(saved)

	if o.opts.ReloadListAfterSave {
		if err := o.LoadBoards(ctx); err != nil {
			return saved, err
		}
	} else {
		o.state.UpsertBoard(saved)
	}

	o.logger.WithField("board", saved.ID).Info("board saved")
	return saved, nil
}

// SaveMiniBoard updates a board's title, description and favourite flag.
func (o *Orchestrator) SaveMiniBoard(ctx context.Context, mini board.MiniBoard) (board.Board, error) {
	var target board.Board
	if cur, ok := o.state.CurrentBoard(); ok && cur.ID == mini.ID {
		target = *cur
	} else {
		b, err := o.gw.GetByID(ctx, mini.ID)
		if err != nil {
			return board.Board{}, o.fail("save mini board", mini.ID, err)
		}
		target = b
	}

	target.Title = mini.Title
	target.Description = mini.Description
	target.IsFavorite = mini.IsFavorite

	saved, err := o.gw.Save(ctx, target)
	if err != nil {
		return board.Board{}, o.fail("save mini board", mini.ID, err)
	}
	if err := o.LoadBoards(ctx); err != nil {
		return saved, err
	}
	o.state.SelectBoard(saved)
	o.emit(ctx, board.EventBoardListUpdated, nil)

	o.logger.WithField("board", saved.ID).Info("board details saved")
	return saved, nil
}

// RemoveBoard deletes a board. Local state is only touched once the gateway
// has confirmed the removal.
func (o *Orchestrator) RemoveBoard(ctx context.Context, boardID string) error {
	if err := o.gw.Remove(ctx, boardID); err != nil {
		return o.fail("remove board", boardID, err)
	}
	o.state.DeleteBoardFromList(boardID)
	o.emit(ctx, board.EventBoardListUpdated, nil)

	o.logger.WithField("board", boardID).Info("board removed")
	return nil
}

// DuplicateBoard stores a copy of a board without its activity log and selects it.
func (o *Orchestrator) DuplicateBoard(ctx context.Context, boardID string) (board.Board, error) {
	src, err := o.gw.GetByID(ctx, boardID)
	if err != nil {
		return board.Board{}, o.fail("duplicate board", boardID, err)
	}

	dup := src.Clone()
	dup.ID = ""
	dup.CreatedAtMs = 0
	dup.Activities = []board.Activity{}
	dup.Title = "Copy of " + src.Title

	saved, err := o.gw.Save(ctx, dup)
	if err != nil {
		return board.Board{}, o.fail("duplicate board", boardID, err)
	}
	if err := o.LoadBoards(ctx); err != nil {
		return saved, err
	}
	o.state.SelectBoard(saved)
	o.emit(ctx, board.EventBoardListUpdated, nil)

	o.logger.WithFields(log.Fields{"board": saved.ID, "source": boardID}).Info("board duplicated")
	return saved, nil
}

// SaveUpdate posts a message on a task of the current board as the session user.
func (o *Orchestrator) SaveUpdate(ctx context.Context, taskID, txt string) (board.Activity, error) {
	cur, ok := o.state.CurrentBoard()
	if !ok {
		return board.Activity{}, store.ErrNoCurrentBoard
	}
	user, ok := o.identity.CurrentUser()
	if !ok {
		return board.Activity{}, ErrNotLoggedIn
	}

	a := board.Activity{
		BoardID:   cur.ID,
		TaskID:    taskID,
		Type:      board.ActivityTypeNewMsg,
		CreatedBy: user.Stripped(),
		Content: board.ActivityContent{
			Txt:     txt,
			LikedBy: []board.User{},
		},
	}

	saved, err := o.AddActivity(ctx, a)
	if err != nil {
		o.logger.WithError(err).WithField("task", taskID).Error("failed to register new message")
		return board.Activity{}, err
	}
	return saved, nil
}

// AddActivity notifies peers, stores the activity and prepends the stored
// version to the current board.
func (o *Orchestrator) AddActivity(ctx context.Context, a board.Activity) (board.Activity, error) {
	o.emit(ctx, board.EventTaskUpdated, a)

	saved, err := o.gw.AddActivity(ctx, a)
	if err != nil {
		return board.Activity{}, o.fail("add activity", a.BoardID, err)
	}
	// The session may have switched boards while the request was in flight
	if cur, ok := o.state.CurrentBoard(); !ok || cur.ID != saved.BoardID {
		o.logger.WithFields(log.Fields{"board": saved.BoardID, "activity": saved.ID}).Debug("activity stored for a board no longer selected")
		return saved, nil
	}
	if err := o.state.PrependActivity(saved); err != nil {
		return saved, err
	}

	o.logger.WithFields(log.Fields{"board": saved.BoardID, "activity": saved.ID}).Debug("activity added")
	return saved, nil
}

// ToggleUpdateLike toggles the session user's like on an activity and saves the
// board. If the save fails the like is toggled back.
func (o *Orchestrator) ToggleUpdateLike(ctx context.Context, activityID string) error {
	user, ok := o.identity.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := o.state.ToggleActivityLike(activityID, user); err != nil {
		return err
	}

	if persisted, err := o.saveCurrent(ctx); err != nil {
		if !persisted {
			if rbErr := o.state.ToggleActivityLike(activityID, user); rbErr != nil {
				o.logger.WithError(rbErr).WithField("activity", activityID).Error("like rollback failed")
			}
		}
		return err
	}
	return nil
}

// RemoveUpdate removes an activity from the current board and saves the board.
// If the save fails the activity is put back where it was. Removing an unknown
// activity does nothing.
func (o *Orchestrator) RemoveUpdate(ctx context.Context, activityID string) error {
	removed, index, err := o.state.RemoveActivity(activityID)
	if err != nil {
		return err
	}
	if removed == nil {
		o.logger.WithField("activity", activityID).Debug("update already gone")
		return nil
	}

	if persisted, err := o.saveCurrent(ctx); err != nil {
		if !persisted {
			if rbErr := o.state.InsertActivityAt(*removed, index); rbErr != nil {
				o.logger.WithError(rbErr).WithField("activity", activityID).Error("update removal rollback failed")
			}
		}
		return err
	}
	return nil
}

// SetFilter applies a text filter to the current board.
func (o *Orchestrator) SetFilter(q board.FilterQuery) error {
	return o.state.ApplyFilter(q)
}

// SetFilterList replaces the cached board list with the gateway's matches for q.
func (o *Orchestrator) SetFilterList(ctx context.Context, q board.BoardQuery) error {
	boards, err := o.gw.Query(ctx, &q)
	if err != nil {
		return o.fail("filter boards", "", err)
	}
	o.state.ReplaceBoardList(boards)
	return nil
}

// SaveUser stores the user's profile with the identity service.
func (o *Orchestrator) SaveUser(ctx context.Context, u board.User) (board.User, error) {
	saved, err := o.identity.Update(ctx, u)
	if err != nil {
		o.logger.WithError(err).WithField("user", u.ID).Error("failed to save user")
		return board.User{}, fmt.Errorf("save user: %w", err)
	}
	return saved, nil
}

// saveCurrent saves the current board. persisted reports whether the gateway
// accepted the write, which decides if a failed action may be rolled back.
func (o *Orchestrator) saveCurrent(ctx context.Context) (persisted bool, err error) {
	cur, ok := o.state.CurrentBoard()
	if !ok {
		return false, store.ErrNoCurrentBoard
	}
	saved, err := o.SaveBoard(ctx, *cur)
	return saved.ID != "", err
}

func (o *Orchestrator) emit(ctx context.Context, event string, payload any) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Emit(ctx, event, payload); err != nil {
		o.logger.WithError(err).WithField("event", event).Warn("failed to notify peers")
	}
}

func (o *Orchestrator) fail(op, boardID string, err error) error {
	wrapped := upstream(op, err)
	entry := o.logger.WithError(err).WithField("op", op)
	if boardID != "" {
		entry = entry.WithField("board", boardID)
	}
	entry.Error("gateway request failed")
	return wrapped
}
