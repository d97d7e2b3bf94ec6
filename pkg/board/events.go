package board

import (
	"encoding/json"
	"fmt"
	"time"
)

// Real-time event names shared by all sessions of a workspace.
const (
	// EventBoardUpdated carries the full board that was just changed
	EventBoardUpdated = "board-updated"

	// EventBoardListUpdated tells peers to reload their board list
	EventBoardListUpdated = "board-list-updated"

	// EventTaskUpdated carries the activity that was just added to a task
	EventTaskUpdated = "task-updated"
)

// Event is the message published on the workspace events channel.
// Origin identifies the emitting session so it can ignore its own echoes.
type Event struct {
	Name     string          `json:"name"`
	Origin   string          `json:"origin"`
	BoardID  string          `json:"boardId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	SentAtMs int64           `json:"sentAt"`
}

// NewEvent builds an event for the given payload. The board id is taken from the
// payload when it is a board, a mini board or an activity.
func NewEvent(name, origin string, payload any) (*Event, error) {
	if name == "" {
		return nil, fmt.Errorf("event name cannot be empty")
	}

	ev := &Event{
		Name:     name,
		Origin:   origin,
		BoardID:  boardIDOf(payload),
		SentAtMs: time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// DecodeBoard unmarshals the payload of a board-updated event.
func (e *Event) DecodeBoard() (Board, error) {
	var b Board
	if len(e.Payload) == 0 {
		return b, fmt.Errorf("event %s has no payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, &b); err != nil {
		return b, fmt.Errorf("failed to decode board payload: %w", err)
	}
	return b, nil
}

// DecodeActivity unmarshals the payload of a task-updated event.
func (e *Event) DecodeActivity() (Activity, error) {
	var a Activity
	if len(e.Payload) == 0 {
		return a, fmt.Errorf("event %s has no payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, &a); err != nil {
		return a, fmt.Errorf("failed to decode activity payload: %w", err)
	}
	return a, nil
}

func boardIDOf(payload any) string {
	switch p := payload.(type) {
	case Board:
		return p.ID
	case *Board:
		if p != nil {
			return p.ID
		}
	case MiniBoard:
		return p.ID
	case *MiniBoard:
		if p != nil {
			return p.ID
		}
	case Activity:
		return p.BoardID
	case *Activity:
		if p != nil {
			return p.BoardID
		}
	}
	return ""
}
