package board

import (
	"fmt"

	"github.com/google/uuid"
)

// Board is the top-level entity: ordered groups of tasks plus an activity log.
type Board struct {
	ID          string     `json:"_id,omitempty" bson:"_id,omitempty"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	IsFavorite  bool       `json:"isFavorite" bson:"isFavorite"`
	Columns     []string   `json:"columns" bson:"columns"`       // Column-type ids, display order
	Groups      []Group    `json:"groups" bson:"groups"`         // Display order
	Activities  []Activity `json:"activities" bson:"activities"` // Most recent first
	CreatedBy   *User      `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAtMs int64      `json:"createdAt,omitempty" bson:"createdAtMs,omitempty"`
}

// Group is an ordered bucket of tasks within a board.
type Group struct {
	ID    string `json:"id" bson:"id"`
	Title string `json:"title" bson:"title"`
	Color string `json:"color,omitempty" bson:"color,omitempty"`
	Tasks []Task `json:"tasks" bson:"tasks"`
}

// Task is a unit of work with a title and one value per declared board column.
// The shape of each value is defined by the column type registered for its key.
type Task struct {
	ID      string         `json:"id" bson:"id"`
	Title   string         `json:"title" bson:"title"`
	Columns map[string]any `json:"columns" bson:"columns"`
}

// Activity types recorded on a board.
const (
	// ActivityTypeNewMsg is a chat-style update posted on a task
	ActivityTypeNewMsg = "new-msg"

	// ActivityTypeStatusChange records a change of a task's status column
	ActivityTypeStatusChange = "status-change"

	// ActivityTypeTaskCreated records the creation of a task
	ActivityTypeTaskCreated = "task-created"
)

// Activity is a logged event attached to a board and task: either a message or a
// system-recorded change.
type Activity struct {
	ID          string          `json:"id" bson:"id"`
	BoardID     string          `json:"boardId" bson:"boardId"`
	TaskID      string          `json:"taskId" bson:"taskId"`
	Type        string          `json:"type" bson:"type"`
	CreatedBy   User            `json:"createdBy" bson:"createdBy"`
	Content     ActivityContent `json:"content" bson:"content"`
	CreatedAtMs int64           `json:"createdAt" bson:"createdAtMs"`
}

// ActivityContent is the free-form payload of an activity. Message activities use
// Txt and LikedBy; change activities put their details in Extra.
type ActivityContent struct {
	Txt     string         `json:"txt,omitempty" bson:"txt,omitempty"`
	LikedBy []User         `json:"likedBy" bson:"likedBy"`
	Extra   map[string]any `json:"extra,omitempty" bson:"extra,omitempty"`
}

// User is a denormalized user snapshot. Activities holds the user's own history
// and is stripped before the user is embedded in an Activity.
type User struct {
	ID         string     `json:"_id" bson:"_id"`
	FullName   string     `json:"fullname" bson:"fullname"`
	Username   string     `json:"username,omitempty" bson:"username,omitempty"`
	ImgURL     string     `json:"imgUrl,omitempty" bson:"imgUrl,omitempty"`
	Activities []Activity `json:"activities,omitempty" bson:"activities,omitempty"`
}

// FilterQuery is the live text search applied to the current board.
// Txt is matched case-insensitively as a regular expression.
type FilterQuery struct {
	Txt string `json:"txt"`
}

// BoardQuery filters the board list on the gateway side.
type BoardQuery struct {
	Txt string `json:"txt"`
}

// MiniBoard is the partial board payload used to edit board metadata.
type MiniBoard struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsFavorite  bool   `json:"isFavorite"`
}

// Stripped returns a copy of the user without its activity history, so that
// embedding the user in an activity cannot nest activities recursively.
func (u User) Stripped() User {
	c := u
	c.Activities = nil
	return c
}

// Validate checks that the board can be persisted.
func (b *Board) Validate() error {
	if b.Title == "" {
		return fmt.Errorf("board title cannot be empty")
	}
	seen := make(map[string]struct{}, len(b.Columns))
	for i, col := range b.Columns {
		if col == "" {
			return fmt.Errorf("column at index %d has an empty type", i)
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// Validate checks that the activity carries the fields the gateway needs.
func (a *Activity) Validate() error {
	if a.BoardID == "" {
		return fmt.Errorf("activity board id cannot be empty")
	}
	if a.Type == "" {
		return fmt.Errorf("activity type cannot be empty")
	}
	if a.CreatedBy.ID == "" {
		return fmt.Errorf("activity creator cannot be empty")
	}
	return nil
}

// FindActivity returns the index of the first activity with the given id, or -1.
func (b *Board) FindActivity(activityID string) int {
	for i := range b.Activities {
		if b.Activities[i].ID == activityID {
			return i
		}
	}
	return -1
}

// HasLike reports whether the user (by id) is in the activity's liked-by set.
func (a *Activity) HasLike(userID string) bool {
	for _, u := range a.Content.LikedBy {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// NewEmptyTask returns a blank task for the board: a fresh id and one empty value
// per declared column.
func NewEmptyTask(b Board) Task {
	cols := make(map[string]any, len(b.Columns))
	for _, col := range b.Columns {
		cols[col] = nil
	}
	return Task{
		ID:      uuid.New().String(),
		Title:   "",
		Columns: cols,
	}
}
