package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic-lock retries on concurrent activity writes.
const maxTxRetries = 5

// Client provides workspace-scoped Redis operations for boards.
// All keys and channels are automatically namespaced with the workspace name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
//
// Client serves two roles: persistence gateway (Query, GetByID, Save, Remove,
// AddActivity) and real-time notifier (Emit, Subscribe).
type Client struct {
	rdb       *redis.Client
	workspace string
	origin    string
}

// NewClient creates a new board client for the specified workspace.
// Each client gets a unique origin id that is stamped on every event it emits.
//
// Returns an error if workspace is empty.
func NewClient(redisOpts *redis.Options, workspace string) (*Client, error) {
	if workspace == "" {
		return nil, fmt.Errorf("workspace name cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		workspace: workspace,
		origin:    uuid.New().String(),
	}, nil
}

// Workspace returns the workspace this client is scoped to.
func (c *Client) Workspace() string {
	return c.workspace
}

// Origin returns the session id stamped on events emitted by this client.
func (c *Client) Origin() string {
	return c.origin
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Query returns the boards of the workspace in creation order.
// When q carries text, MatchTitles keeps only boards whose title fuzzy-matches it,
// best match first.
func (c *Client) Query(ctx context.Context, q *BoardQuery) ([]Board, error) {
	ids, err := c.rdb.ZRange(ctx, BoardIndexKey(c.workspace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read board index: %w", err)
	}

	boards := make([]Board, 0, len(ids))
	if len(ids) == 0 {
		return boards, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BoardKey(c.workspace, id)
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read boards: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document: the board was removed concurrently
			continue
		}
		var b Board
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("failed to decode board %s: %w", ids[i], err)
		}
		boards = append(boards, b)
	}

	return MatchTitles(boards, q), nil
}

// GetByID retrieves a board by id.
// Returns redis.Nil if the board doesn't exist. Use IsNotFound() to check.
func (c *Client) GetByID(ctx context.Context, boardID string) (Board, error) {
	raw, err := c.rdb.Get(ctx, BoardKey(c.workspace, boardID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Board{}, redis.Nil
		}
		return Board{}, fmt.Errorf("failed to read board from Redis: %w", err)
	}

	var b Board
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return Board{}, fmt.Errorf("failed to decode board: %w", err)
	}
	return b, nil
}

// Save creates or replaces a board and returns the stored version.
// A board without an id is created: it receives a fresh id and a creation time.
// Saving an existing id replaces the whole document.
func (c *Client) Save(ctx context.Context, b Board) (Board, error) {
	if err := b.Validate(); err != nil {
		return Board{}, fmt.Errorf("invalid board: %w", err)
	}

	saved := b.Clone()
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if saved.CreatedAtMs == 0 {
		saved.CreatedAtMs = time.Now().UnixMilli()
	}
	if saved.Columns == nil {
		saved.Columns = []string{}
	}
	if saved.Groups == nil {
		saved.Groups = []Group{}
	}
	if saved.Activities == nil {
		saved.Activities = []Activity{}
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return Board{}, fmt.Errorf("failed to serialize board: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BoardKey(c.workspace, saved.ID), data, 0)
		// NX keeps the original position of boards that are re-saved
		pipe.ZAddNX(ctx, BoardIndexKey(c.workspace), redis.Z{
			Score:  float64(saved.CreatedAtMs),
			Member: saved.ID,
		})
		return nil
	})
	if err != nil {
		return Board{}, fmt.Errorf("failed to write board to Redis: %w", err)
	}

	return saved, nil
}

// Remove deletes a board and its index entry.
// Returns redis.Nil if the board doesn't exist.
func (c *Client) Remove(ctx context.Context, boardID string) error {
	var del *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, BoardKey(c.workspace, boardID))
		pipe.ZRem(ctx, BoardIndexKey(c.workspace), boardID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove board from Redis: %w", err)
	}
	if del.Val() == 0 {
		return redis.Nil
	}
	return nil
}

// AddActivity records an activity on its board and returns the stored version,
// which carries the server-assigned id and timestamp.
// The activity is inserted at the front of the board's log under an optimistic
// lock so concurrent writers never lose each other's entries.
func (c *Client) AddActivity(ctx context.Context, a Activity) (Activity, error) {
	if err := a.Validate(); err != nil {
		return Activity{}, fmt.Errorf("invalid activity: %w", err)
	}

	stored := a.Clone()
	stored.ID = uuid.New().String()
	if stored.CreatedAtMs == 0 {
		stored.CreatedAtMs = time.Now().UnixMilli()
	}
	if stored.Content.LikedBy == nil {
		stored.Content.LikedBy = []User{}
	}

	key := BoardKey(c.workspace, a.BoardID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		var b Board
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return fmt.Errorf("failed to decode board: %w", err)
		}
		b.Activities = append([]Activity{stored}, b.Activities...)
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to serialize board: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := c.rdb.Watch(ctx, txf, key)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return Activity{}, redis.Nil
		}
		return Activity{}, fmt.Errorf("failed to add activity: %w", err)
	}
	return Activity{}, fmt.Errorf("failed to add activity: board %s kept changing", a.BoardID)
}

// EmptyTask returns a blank task template for the board.
func (c *Client) EmptyTask(b Board) (Task, error) {
	return NewEmptyTask(b), nil
}

// ScanBoards returns the ids of all boards whose id starts with prefix.
// Used for short-id resolution in the CLI.
func (c *Client) ScanBoards(ctx context.Context, prefix string) ([]string, error) {
	pattern := BoardKeyPrefix(c.workspace) + prefix + "*"
	keyPrefix := BoardKeyPrefix(c.workspace)

	var ids []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan boards: %w", err)
	}
	return ids, nil
}

// Emit publishes an event to every session of the workspace.
// Delivery is at-most-once: sessions that are not subscribed miss the event.
func (c *Client) Emit(ctx context.Context, event string, payload any) error {
	ev, err := NewEvent(event, c.origin, payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.rdb.Publish(ctx, EventsChannel(c.workspace), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to workspace events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of workspace events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Malformed messages are reported here and skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to the workspace events channel.
// The subscription is confirmed by Redis before Subscribe returns, so events
// emitted afterwards are guaranteed to be delivered.
//
// Events are delivered on a buffered channel (size 10).
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EventsChannel(c.workspace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
