package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dyluth/boardsync/pkg/board"
)

var errBoom = errors.New("boom")

// recorder keeps the global order of gateway and notifier calls.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fakeGateway is an in-memory gateway with per-operation failure injection.
type fakeGateway struct {
	mu     sync.Mutex
	rec    *recorder
	boards map[string]board.Board
	order  []string
	fail   map[string]error
	nextID int
}

func newFakeGateway(rec *recorder, boards ...board.Board) *fakeGateway {
	g := &fakeGateway{rec: rec, boards: map[string]board.Board{}, fail: map[string]error{}}
	for _, b := range boards {
		g.boards[b.ID] = b.Clone()
		g.order = append(g.order, b.ID)
	}
	return g
}

func (g *fakeGateway) failOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[op] = err
}

func (g *fakeGateway) Query(ctx context.Context, q *board.BoardQuery) ([]board.Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rec.add("query")
	if err := g.fail["query"]; err != nil {
		return nil, err
	}
	out := []board.Board{}
	for _, id := range g.order {
		b := g.boards[id]
		if q != nil && q.Txt != "" && b.Title != q.Txt {
			continue
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

func (g *fakeGateway) GetByID(ctx context.Context, id string) (board.Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rec.add("get:" + id)
	if err := g.fail["get"]; err != nil {
		return board.Board{}, err
	}
	b, ok := g.boards[id]
	if !ok {
		return board.Board{}, fmt.Errorf("board %s not found", id)
	}
	return b.Clone(), nil
}

func (g *fakeGateway) Save(ctx context.Context, b board.Board) (board.Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rec.add("save")
	if err := g.fail["save"]; err != nil {
		return board.Board{}, err
	}
	saved := b.Clone()
	if saved.ID == "" {
		g.nextID++
		saved.ID = fmt.Sprintf("new-%d", g.nextID)
	}
	if _, exists := g.boards[saved.ID]; !exists {
		g.order = append(g.order, saved.ID)
	}
	g.boards[saved.ID] = saved.Clone()
	return saved, nil
}

func (g *fakeGateway) Remove(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rec.add("remove:" + id)
	if err := g.fail["remove"]; err != nil {
		return err
	}
	delete(g.boards, id)
	for i, o := range g.order {
		if o == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

func (g *fakeGateway) AddActivity(ctx context.Context, a board.Activity) (board.Activity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rec.add("add-activity")
	if err := g.fail["add-activity"]; err != nil {
		return board.Activity{}, err
	}
	b, ok := g.boards[a.BoardID]
	if !ok {
		return board.Activity{}, fmt.Errorf("board %s not found", a.BoardID)
	}
	g.nextID++
	stored := a.Clone()
	stored.ID = fmt.Sprintf("act-%d", g.nextID)
	stored.CreatedAtMs = int64(g.nextID)
	b.Activities = append([]board.Activity{stored}, b.Activities...)
	g.boards[b.ID] = b
	return stored, nil
}

func (g *fakeGateway) stored(id string) board.Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boards[id].Clone()
}

type emitted struct {
	event   string
	payload any
}

type fakeNotifier struct {
	mu     sync.Mutex
	rec    *recorder
	events []emitted
	err    error
}

func (n *fakeNotifier) Emit(ctx context.Context, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rec.add("emit:" + event)
	n.events = append(n.events, emitted{event: event, payload: payload})
	return n.err
}

func (n *fakeNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.event)
	}
	return out
}

type fakeIdentity struct {
	user     *board.User
	updated  []board.User
	updateFn func(board.User) (board.User, error)
}

func (f *fakeIdentity) CurrentUser() (board.User, bool) {
	if f.user == nil {
		return board.User{}, false
	}
	return f.user.Clone(), true
}

func (f *fakeIdentity) Update(ctx context.Context, u board.User) (board.User, error) {
	f.updated = append(f.updated, u)
	if f.updateFn != nil {
		return f.updateFn(u)
	}
	return u, nil
}
