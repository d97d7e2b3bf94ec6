package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/dyluth/boardsync/pkg/board"
)

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func boardDoc(id, title string, createdAt int64) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "description", Value: ""},
		{Key: "isFavorite", Value: false},
		{Key: "columns", Value: bson.A{"status", "members"}},
		{Key: "groups", Value: bson.A{
			bson.D{
				{Key: "id", Value: "g1"},
				{Key: "title", Value: "Backlog"},
				{Key: "tasks", Value: bson.A{
					bson.D{
						{Key: "id", Value: "t1"},
						{Key: "title", Value: "Ship"},
						{Key: "columns", Value: bson.D{
							{Key: "status", Value: bson.D{{Key: "label", Value: "Done"}}},
							{Key: "members", Value: bson.A{bson.D{{Key: "fullname", Value: "Ada"}}}},
						}},
					},
				}},
			},
		}},
		{Key: "activities", Value: bson.A{}},
		{Key: "createdAtMs", Value: createdAt},
	}
}

func TestGetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes and normalizes column values", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, boardDoc("b1", "Roadmap", 1000)))

		b, err := gw.GetByID(context.Background(), "b1")
		require.NoError(t, err)
		assert.Equal(t, "Roadmap", b.Title)
		assert.Equal(t, int64(1000), b.CreatedAtMs)
		require.Len(t, b.Groups, 1)

		cols := b.Groups[0].Tasks[0].Columns
		status, ok := cols["status"].(map[string]any)
		require.True(t, ok, "nested documents become maps, got %T", cols["status"])
		assert.Equal(t, "Done", status["label"])

		members, ok := cols["members"].([]any)
		require.True(t, ok, "arrays become slices, got %T", cols["members"])
		assert.Len(t, members, 1)
	})

	mt.Run("missing board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := gw.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("server error", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query", Name: "BadValue"}))

		_, err := gw.GetByID(context.Background(), "b1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "failed to read board")
	})
}

func TestQuery(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns all boards", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			boardDoc("b1", "Roadmap", 1000),
			boardDoc("b2", "Marketing", 2000),
		))

		boards, err := gw.Query(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, boards, 2)
		assert.Equal(t, "b1", boards[0].ID)
		assert.Equal(t, "b2", boards[1].ID)
		_, ok := boards[1].Groups[0].Tasks[0].Columns["status"].(map[string]any)
		assert.True(t, ok)
	})

	mt.Run("text matches titles fuzzily, best first", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			boardDoc("b1", "Marketing", 1000),
			boardDoc("b2", "Roadmap", 2000),
			boardDoc("b3", "Road trip", 3000),
		))

		boards, err := gw.Query(context.Background(), &board.BoardQuery{Txt: "rdmp"})
		require.NoError(t, err)
		require.Len(t, boards, 1, "subsequence match, not substring")
		assert.Equal(t, "b2", boards[0].ID)
	})

	mt.Run("empty result is an empty slice", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		boards, err := gw.Query(context.Background(), &board.BoardQuery{Txt: "road"})
		require.NoError(t, err)
		assert.NotNil(t, boards)
		assert.Empty(t, boards)
	})

	mt.Run("server error", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized", Name: "Unauthorized"}))

		_, err := gw.Query(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query boards")
	})
}

func TestScanBoards(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns matching ids", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "65a1b2c3d4e5f60718293a4b"}},
			bson.D{{Key: "_id", Value: "65a1b2c3d4e5f60718293a4c"}},
		))

		ids, err := gw.ScanBoards(context.Background(), "65a1b2")
		require.NoError(t, err)
		assert.Equal(t, []string{"65a1b2c3d4e5f60718293a4b", "65a1b2c3d4e5f60718293a4c"}, ids)
	})

	mt.Run("no matches", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		ids, err := gw.ScanBoards(context.Background(), "ffffff")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSave(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts a new board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		saved, err := gw.Save(context.Background(), board.Board{Title: "Fresh"})
		require.NoError(t, err)
		assert.True(t, primitive.IsValidObjectID(saved.ID))
		assert.NotZero(t, saved.CreatedAtMs)
		assert.Equal(t, []board.Activity{}, saved.Activities)
	})

	mt.Run("replaces an existing board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		saved, err := gw.Save(context.Background(), board.Board{ID: "b1", Title: "Renamed", CreatedAtMs: 42})
		require.NoError(t, err)
		assert.Equal(t, "b1", saved.ID)
		assert.Equal(t, int64(42), saved.CreatedAtMs)
	})

	mt.Run("rejects invalid board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)

		_, err := gw.Save(context.Background(), board.Board{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid board")
	})

	mt.Run("write error", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		_, err := gw.Save(context.Background(), board.Board{Title: "Dup"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert board")
	})
}

func TestRemove(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deletes board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(t, gw.Remove(context.Background(), "b1"))
	})

	mt.Run("missing board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(t, gw.Remove(context.Background(), "b1"), ErrNotFound)
	})
}

func TestAddActivity(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	activity := board.Activity{
		BoardID:   "b1",
		TaskID:    "t1",
		Type:      board.ActivityTypeNewMsg,
		CreatedBy: board.User{ID: "u1"},
		Content:   board.ActivityContent{Txt: "hello"},
	}

	mt.Run("returns stored activity", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		stored, err := gw.AddActivity(context.Background(), activity)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.NotZero(t, stored.CreatedAtMs)
		assert.Equal(t, []board.User{}, stored.Content.LikedBy)
		assert.Equal(t, "hello", stored.Content.Txt)
	})

	mt.Run("missing board", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		_, err := gw.AddActivity(context.Background(), activity)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("rejects invalid activity", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		_, err := gw.AddActivity(context.Background(), board.Activity{BoardID: "b1"})
		assert.Error(t, err)
	})
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates indexes", func(mt *mtest.T) {
		gw := NewGateway(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(t, gw.EnsureIndexes(context.Background()))
	})
}

func TestEmptyTask(t *testing.T) {
	gw := &Gateway{}
	task, err := gw.EmptyTask(board.Board{Columns: []string{"status"}})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Contains(t, task.Columns, "status")
	assert.NoError(t, gw.Close())
}

func TestNormalize(t *testing.T) {
	in := primitive.D{
		{Key: "a", Value: primitive.A{primitive.M{"b": primitive.DateTime(5)}}},
	}
	out, ok := normalize(in).(map[string]any)
	require.True(t, ok)
	list, ok := out["a"].([]any)
	require.True(t, ok)
	inner, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(5), inner["b"])
	assert.Equal(t, "x", normalize("x"))
}
