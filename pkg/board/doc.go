// Package board provides the shared board model and the Redis schema used by
// every boardsync component.
//
// # Overview
//
// A Board holds ordered groups of tasks, a list of declared column types and an
// activity log kept most-recent-first. Each task carries one value per declared
// column; the value's shape is owned by the column type (see internal/columns).
//
// The Client type is the Redis-backed persistence gateway and, through Pub/Sub,
// the real-time notifier that lets several sessions observe each other's changes.
//
// # Copies
//
// Boards are handed across component boundaries by value. Clone performs a
// structural deep copy, including nested column values, so a caller can never
// alias another component's state.
//
// # Redis Schema
//
// Boards: boardsync:{workspace}:board:{board_id} (JSON string)
// Board index: boardsync:{workspace}:boards (ZSET, score = creation time in ms)
// Events: boardsync:{workspace}:events (Pub/Sub, JSON Event)
//
// # Usage Example
//
//	client, err := board.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	saved, err := client.Save(ctx, board.Board{Title: "Roadmap", Columns: []string{"status"}})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_ = client.Emit(ctx, board.EventBoardListUpdated, nil)
package board
