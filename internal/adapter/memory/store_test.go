package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

func TestStore_SchemaLifecycle(t *testing.T) {
	s := NewStore(2)
	ctx := context.Background()

	exists, err := s.ClassExists(ctx, "Workspace_a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateClass(ctx, &models.Class{Class: "Workspace_a"}))
	assert.ErrorIs(t, s.CreateClass(ctx, &models.Class{Class: "Workspace_a"}), ErrClassExists)

	require.NoError(t, s.AddProperty(ctx, "Workspace_a", &models.Property{Name: "chunkText"}))
	class, err := s.GetClass(ctx, "Workspace_a")
	require.NoError(t, err)
	assert.Len(t, class.Properties, 1)

	require.NoError(t, s.DeleteClass(ctx, "Workspace_a"))
	assert.ErrorIs(t, s.DeleteClass(ctx, "Workspace_a"), ErrClassNotFound)
}

func TestStore_WriteRejectsWrongDimension(t *testing.T) {
	s := NewStore(2)
	ctx := context.Background()
	require.NoError(t, s.CreateClass(ctx, &models.Class{Class: "Workspace_a"}))

	err := s.WritePoints(ctx, "Workspace_a", []vector.Point{{ID: "p1", Vector: []float32{1, 0, 0}}})
	assert.Error(t, err)

	n, err := s.Count(ctx, "Workspace_a", "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_WriteUnknownClass(t *testing.T) {
	s := NewStore(2)
	err := s.WritePoints(context.Background(), "Workspace_a", []vector.Point{{ID: "p1", Vector: []float32{1, 0}}})
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestStore_NearVectorRanksByCosine(t *testing.T) {
	s := NewStore(2)
	ctx := context.Background()
	require.NoError(t, s.CreateClass(ctx, &models.Class{Class: "Workspace_a"}))
	require.NoError(t, s.WritePoints(ctx, "Workspace_a", []vector.Point{
		{ID: "p1", DocumentID: "d1", Text: "east", ChunkIndex: 0, Vector: []float32{1, 0}},
		{ID: "p2", DocumentID: "d1", Text: "north", ChunkIndex: 1, Vector: []float32{0, 1}},
		{ID: "p3", DocumentID: "d2", Text: "north-east", ChunkIndex: 0, Vector: []float32{1, 1}},
		{ID: "p4", DocumentID: "d2", Text: "east again", ChunkIndex: 1, Vector: []float32{2, 0}},
	}))

	matches, err := s.NearVector(ctx, "Workspace_a", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "east", matches[0].ChunkText)
	assert.Equal(t, "east again", matches[1].ChunkText, "equal scores keep insertion order")
	assert.Equal(t, "north-east", matches[2].ChunkText)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestStore_DeleteByDocumentAndCount(t *testing.T) {
	s := NewStore(2)
	ctx := context.Background()
	require.NoError(t, s.CreateClass(ctx, &models.Class{Class: "Workspace_a"}))
	require.NoError(t, s.WritePoints(ctx, "Workspace_a", []vector.Point{
		{ID: "p1", DocumentID: "d1", Vector: []float32{1, 0}},
		{ID: "p2", DocumentID: "d1", Vector: []float32{0, 1}},
		{ID: "p3", DocumentID: "d2", Vector: []float32{1, 1}},
	}))

	n, err := s.Count(ctx, "Workspace_a", "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DeleteByDocument(ctx, "Workspace_a", "d1"))
	require.NoError(t, s.DeleteByDocument(ctx, "Workspace_a", "d1"))

	n, err = s.Count(ctx, "Workspace_a", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, cosine([]float32{1}, []float32{1, 0}))
}
