package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeEmbedder maps known texts to fixed vectors so distances are predictable.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func newTestStore(t *testing.T, embedder Embedder) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// One connection so the in-memory database survives pool churn.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(Models()...))
	return New(db, embedder)
}

func TestCreateObjectEmbedsMessageContent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{vectors: map[string][]float32{
		"solar panels": {0, 1, 0},
	}})

	id, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{
		"content": "solar panels",
		"role":    "user",
	})
	require.NoError(t, err)

	obj, err := store.GetObject(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, []float32{0, 1, 0}, obj.Vector)
	assert.Equal(t, "user", obj.Properties["role"])
}

func TestCreateBrainstormObjectStartsWithoutVector(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{})

	id, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{
		"title": "Garden ideas",
	})
	require.NoError(t, err)

	obj, err := store.GetObject(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Empty(t, obj.Vector)
}

func TestGetObjectMissingReturnsNil(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	obj, err := store.GetObject(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestUpdatePropertiesMerges(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{})

	id, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{
		"title": "Garden ideas",
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateProperties(ctx, id, map[string]any{
		"summary": "A plan for the garden.",
	}))

	obj, err := store.GetObject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Garden ideas", obj.Properties["title"])
	assert.Equal(t, "A plan for the garden.", obj.Properties["summary"])
}

func TestCentroidFollowsMessageReferences(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{vectors: map[string][]float32{
		"first":  {1, 0, 0},
		"second": {0, 1, 0},
	}})

	brainstormID, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{"title": "t"})
	require.NoError(t, err)
	firstID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "first"})
	require.NoError(t, err)
	secondID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "second"})
	require.NoError(t, err)

	require.NoError(t, store.AddReference(ctx, brainstormID, PropertyHasMessages, firstID))
	obj, err := store.GetObject(ctx, brainstormID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, obj.Vector)

	require.NoError(t, store.AddReference(ctx, brainstormID, PropertyHasMessages, secondID))
	obj, err = store.GetObject(ctx, brainstormID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, 0}, obj.Vector)

	require.NoError(t, store.DeleteReference(ctx, brainstormID, PropertyHasMessages, firstID))
	obj, err = store.GetObject(ctx, brainstormID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, obj.Vector)

	require.NoError(t, store.DeleteReference(ctx, brainstormID, PropertyHasMessages, secondID))
	obj, err = store.GetObject(ctx, brainstormID)
	require.NoError(t, err)
	assert.Empty(t, obj.Vector)
}

func TestDeleteReferencesOfRemovesBothDirections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{})

	brainstormID, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{"title": "t"})
	require.NoError(t, err)
	messageID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "hello"})
	require.NoError(t, err)

	require.NoError(t, store.AddReference(ctx, brainstormID, PropertyHasMessages, messageID))
	require.NoError(t, store.AddReference(ctx, messageID, PropertyHasBrainstorm, brainstormID))

	require.NoError(t, store.DeleteReferencesOf(ctx, messageID))

	fromBrainstorm, err := store.ReferencesFrom(ctx, brainstormID)
	require.NoError(t, err)
	assert.Empty(t, fromBrainstorm)
	fromMessage, err := store.ReferencesFrom(ctx, messageID)
	require.NoError(t, err)
	assert.Empty(t, fromMessage)
}

func TestDeleteReferencesOfRefreshesCentroid(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{vectors: map[string][]float32{
		"first":  {1, 0, 0},
		"second": {0, 1, 0},
	}})

	brainstormID, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{"title": "t"})
	require.NoError(t, err)
	firstID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "first"})
	require.NoError(t, err)
	secondID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "second"})
	require.NoError(t, err)

	require.NoError(t, store.AddReference(ctx, brainstormID, PropertyHasMessages, firstID))
	require.NoError(t, store.AddReference(ctx, firstID, PropertyHasBrainstorm, brainstormID))
	require.NoError(t, store.AddReference(ctx, brainstormID, PropertyHasMessages, secondID))
	require.NoError(t, store.AddReference(ctx, secondID, PropertyHasBrainstorm, brainstormID))

	// Bulk edge removal of one message must leave the centroid equal to the
	// mean of the messages still referenced.
	require.NoError(t, store.DeleteReferencesOf(ctx, secondID))
	obj, err := store.GetObject(ctx, brainstormID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, obj.Vector)

	require.NoError(t, store.DeleteReferencesOf(ctx, firstID))
	obj, err = store.GetObject(ctx, brainstormID)
	require.NoError(t, err)
	assert.Empty(t, obj.Vector)
}

func TestFindByProperty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{})

	_, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{
		"content":             "hello",
		"brainstormMessageId": uint(7),
	})
	require.NoError(t, err)

	// Integer properties survive the JSON round-trip as float64.
	found, err := store.FindByProperty(ctx, ClassBrainstormMessage, "brainstormMessageId", uint(7))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "hello", found.Properties["content"])

	missing, err := store.FindByProperty(ctx, ClassBrainstormMessage, "brainstormMessageId", uint(8))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSearchOrdersByDistanceAndFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{vectors: map[string][]float32{
		"anchor":    {1, 0, 0},
		"close":     {0.9, 0.1, 0},
		"closer":    {0.99, 0.01, 0},
		"far":       {0, 0, 1},
		"wrongrole": {0.95, 0.05, 0},
	}})

	anchorID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{
		"content": "anchor", "role": "user", "brainstormId": uint(1),
	})
	require.NoError(t, err)
	for _, content := range []string{"close", "closer", "far"} {
		_, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{
			"content": content, "role": "user", "brainstormId": uint(2),
		})
		require.NoError(t, err)
	}
	_, err = store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{
		"content": "wrongrole", "role": "assistant", "brainstormId": uint(2),
	})
	require.NoError(t, err)

	hits, err := store.Search(ctx, Query{
		Class:        ClassBrainstormMessage,
		NearObjectID: anchorID,
		Where: []Predicate{
			{Key: "brainstormId", Op: OpNotEqual, Value: uint(1)},
			{Key: "role", Op: OpEqual, Value: "user"},
		},
		Limit:       2,
		MaxDistance: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "closer", hits[0].Object.Properties["content"])
	assert.Equal(t, "close", hits[1].Object.Properties["content"])
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestSearchExcludesAnchorObject(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{vectors: map[string][]float32{
		"anchor": {1, 0, 0},
		"other":  {1, 0, 0},
	}})

	anchorID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "anchor"})
	require.NoError(t, err)
	_, err = store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": "other"})
	require.NoError(t, err)

	hits, err := store.Search(ctx, Query{Class: ClassBrainstormMessage, NearObjectID: anchorID})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "other", hits[0].Object.Properties["content"])
}

func TestSearchMissingAnchorYieldsEmpty(t *testing.T) {
	store := newTestStore(t, &fakeEmbedder{})
	hits, err := store.Search(context.Background(), Query{
		Class:        ClassBrainstormMessage,
		NearObjectID: "no-such-id",
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchNotNullPredicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, &fakeEmbedder{})

	withSummary, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{
		"title": "a", "summary": "done",
	})
	require.NoError(t, err)
	withoutSummary, err := store.CreateObject(ctx, ClassBrainstorm, map[string]any{
		"title": "b",
	})
	require.NoError(t, err)

	// Brainstorm vectors come from message references; set them up directly.
	for i, id := range []string{withSummary, withoutSummary} {
		content := fmt.Sprintf("m%d", i)
		msgID, err := store.CreateObject(ctx, ClassBrainstormMessage, map[string]any{"content": content})
		require.NoError(t, err)
		require.NoError(t, store.AddReference(ctx, id, PropertyHasMessages, msgID))
	}

	hits, err := store.Search(ctx, Query{
		Class:      ClassBrainstorm,
		NearVector: []float32{1, 0, 0},
		Where:      []Predicate{{Key: "summary", Op: OpNotNull}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Object.Properties["title"])
}
