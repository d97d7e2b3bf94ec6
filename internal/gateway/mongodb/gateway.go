// Package mongodb implements the board persistence gateway on MongoDB.
//
// Boards are stored whole, one document per board, in the "boards" collection.
// Activities live inside their board document, most recent first.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dyluth/boardsync/pkg/board"
)

// CollectionName is the collection holding board documents.
const CollectionName = "boards"

// ErrNotFound is returned when a board id has no document.
var ErrNotFound = errors.New("board not found")

// Gateway reads and writes boards in a MongoDB collection.
type Gateway struct {
	coll   *mongo.Collection
	client *mongo.Client
}

// Connect dials MongoDB, verifies the connection and returns a gateway over
// the boards collection of dbName.
func Connect(ctx context.Context, uri, dbName string) (*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.WithField("database", dbName).Debug("connected to MongoDB")

	g := NewGateway(client.Database(dbName).Collection(CollectionName))
	g.client = client
	return g, nil
}

// NewGateway wraps an existing collection.
func NewGateway(coll *mongo.Collection) *Gateway {
	return &Gateway{coll: coll}
}

// Close disconnects the client opened by Connect. Gateways built with
// NewGateway do not own their client and Close is a no-op for them.
func (g *Gateway) Close() error {
	if g.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes used by Query.
func (g *Gateway) EnsureIndexes(ctx context.Context) error {
	_, err := g.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAtMs", Value: 1}},
			Options: options.Index().SetName("idx_created_at"),
		},
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetName("idx_title"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create board indexes: %w", err)
	}
	return nil
}

// Query returns boards in creation order. Text in q is matched against titles
// with board.MatchTitles after the read, as the Redis gateway does.
func (g *Gateway) Query(ctx context.Context, q *board.BoardQuery) ([]board.Board, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAtMs", Value: 1}})

	cursor, err := g.coll.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}
	defer cursor.Close(ctx)

	boards := []board.Board{}
	if err := cursor.All(ctx, &boards); err != nil {
		return nil, fmt.Errorf("failed to decode boards: %w", err)
	}
	for i := range boards {
		normalizeBoard(&boards[i])
	}
	return board.MatchTitles(boards, q), nil
}

// GetByID returns the board with the given id, or ErrNotFound.
func (g *Gateway) GetByID(ctx context.Context, boardID string) (board.Board, error) {
	var b board.Board
	err := g.coll.FindOne(ctx, bson.M{"_id": boardID}).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return board.Board{}, ErrNotFound
		}
		return board.Board{}, fmt.Errorf("failed to read board: %w", err)
	}
	normalizeBoard(&b)
	return b, nil
}

// ScanBoards returns the ids of boards whose id starts with prefix.
func (g *Gateway) ScanBoards(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}}
	findOptions := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := g.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to scan boards: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode board id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan boards: %w", err)
	}
	return ids, nil
}

// Save inserts a board without an id under a new id, or replaces the stored
// document of an existing one.
func (g *Gateway) Save(ctx context.Context, b board.Board) (board.Board, error) {
	if err := b.Validate(); err != nil {
		return board.Board{}, fmt.Errorf("invalid board: %w", err)
	}

	saved := b.Clone()
	if saved.CreatedAtMs == 0 {
		saved.CreatedAtMs = time.Now().UnixMilli()
	}
	if saved.Activities == nil {
		saved.Activities = []board.Activity{}
	}
	if saved.Groups == nil {
		saved.Groups = []board.Group{}
	}
	if saved.Columns == nil {
		saved.Columns = []string{}
	}

	if saved.ID == "" {
		saved.ID = primitive.NewObjectID().Hex()
		if _, err := g.coll.InsertOne(ctx, saved); err != nil {
			return board.Board{}, fmt.Errorf("failed to insert board: %w", err)
		}
		return saved, nil
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := g.coll.ReplaceOne(ctx, bson.M{"_id": saved.ID}, saved, opts); err != nil {
		return board.Board{}, fmt.Errorf("failed to replace board: %w", err)
	}
	return saved, nil
}

// Remove deletes a board, or returns ErrNotFound.
func (g *Gateway) Remove(ctx context.Context, boardID string) error {
	res, err := g.coll.DeleteOne(ctx, bson.M{"_id": boardID})
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddActivity pushes an activity to the front of its board's log and returns
// the stored version.
func (g *Gateway) AddActivity(ctx context.Context, a board.Activity) (board.Activity, error) {
	if err := a.Validate(); err != nil {
		return board.Activity{}, fmt.Errorf("invalid activity: %w", err)
	}

	stored := a.Clone()
	stored.ID = uuid.New().String()
	if stored.CreatedAtMs == 0 {
		stored.CreatedAtMs = time.Now().UnixMilli()
	}
	if stored.Content.LikedBy == nil {
		stored.Content.LikedBy = []board.User{}
	}

	update := bson.M{"$push": bson.M{"activities": bson.M{
		"$each":     bson.A{stored},
		"$position": 0,
	}}}
	res, err := g.coll.UpdateOne(ctx, bson.M{"_id": a.BoardID}, update)
	if err != nil {
		return board.Activity{}, fmt.Errorf("failed to add activity: %w", err)
	}
	if res.MatchedCount == 0 {
		return board.Activity{}, ErrNotFound
	}
	return stored, nil
}

// EmptyTask returns a blank task template for the board.
func (g *Gateway) EmptyTask(b board.Board) (board.Task, error) {
	return board.NewEmptyTask(b), nil
}

// normalizeBoard rewrites decoded column values from BSON container types to the
// plain maps and slices produced by JSON decoding, so column renderers see one
// shape whatever the backend.
func normalizeBoard(b *board.Board) {
	for gi := range b.Groups {
		for ti := range b.Groups[gi].Tasks {
			t := &b.Groups[gi].Tasks[ti]
			for k, v := range t.Columns {
				t.Columns[k] = normalize(v)
			}
		}
	}
	for ai := range b.Activities {
		extra := b.Activities[ai].Content.Extra
		for k, v := range extra {
			extra[k] = normalize(v)
		}
	}
}

func normalize(v any) any {
	switch x := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = normalize(e)
		}
		return m
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	case primitive.DateTime:
		return int64(x)
	}
	return v
}
