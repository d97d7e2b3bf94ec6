package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by workspace name so
// several workspaces can share a single Redis server.
//
// Key pattern: boardsync:{workspace}:{entity}:{id}
// Channel pattern: boardsync:{workspace}:events

// BoardKey returns the Redis key holding a board document.
// Pattern: boardsync:{workspace}:board:{board_id}
func BoardKey(workspace, boardID string) string {
	return fmt.Sprintf("boardsync:%s:board:%s", workspace, boardID)
}

// BoardKeyPrefix returns the key prefix shared by every board of a workspace.
func BoardKeyPrefix(workspace string) string {
	return fmt.Sprintf("boardsync:%s:board:", workspace)
}

// BoardIndexKey returns the Redis key for the board index ZSET.
// Members are board ids scored by creation time, which gives the list a stable order.
// Pattern: boardsync:{workspace}:boards
func BoardIndexKey(workspace string) string {
	return fmt.Sprintf("boardsync:%s:boards", workspace)
}

// EventsChannel returns the Pub/Sub channel carrying board change notifications.
// Pattern: boardsync:{workspace}:events
func EventsChannel(workspace string) string {
	return fmt.Sprintf("boardsync:%s:events", workspace)
}
