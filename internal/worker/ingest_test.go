package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/adapter/memory"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/cache"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/testutils"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/text"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/worker"
)

const e2eDim = 24

type pipeline struct {
	docs     *memoryDocs
	store    *vector.Store
	embedder *testutils.HashEmbedder
	orch     *worker.Orchestrator
}

func newPipeline(t *testing.T, docs ...*document.Document) *pipeline {
	t.Helper()
	mem := memory.NewStore(e2eDim)
	embedder := testutils.NewHashEmbedder(e2eDim)
	results := cache.NewSearchCache[vector.Match](cache.NewMemoryBucket(0), nil)
	store := vector.NewStore(vector.NewRegistry(mem), mem, embedder, vector.WithResultCache(results))

	p := &pipeline{docs: newMemoryDocs(docs...), store: store, embedder: embedder}
	chunker := text.NewChunker(text.WithMaxLength(40), text.WithOverlap(8))
	p.orch = worker.NewOrchestrator(p.docs, worker.PlainTextExtractor{}, chunker, store, nil, nil, nil)
	return p
}

func pending(id, ns string) *document.Document {
	return &document.Document{ID: id, NamespaceID: ns, Status: document.StatusPending}
}

func TestIngest_EndToEnd(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, pending("doc-1", "acme"), pending("doc-2", "acme"))

	out := p.orch.Ingest(ctx, "doc-1", "acme", "The quarterly revenue grew twelve percent thanks to the new subscription plans.")
	require.Equal(t, document.StatusCompleted, out.Status)
	out = p.orch.Ingest(ctx, "doc-2", "acme", "Onboarding checklist: laptop, badge, security training and payroll forms.")
	require.Equal(t, document.StatusCompleted, out.Status)

	stored, err := p.store.CountDocumentVectors(ctx, "acme", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, p.docs.get("doc-1").ChunkCount, stored)
	assert.Greater(t, stored, 1)

	matches, err := p.store.Search(ctx, "acme", "quarterly revenue subscription", 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "doc-1", matches[0].DocumentID)

	require.NoError(t, p.store.DeleteDocumentVectors(ctx, "acme", "doc-1"))
	matches, err = p.store.Search(ctx, "acme", "quarterly revenue subscription", 3)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, "doc-1", m.DocumentID)
	}
}

func TestIngest_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, pending("a", "tenant-a"), pending("b", "tenant-b"))

	require.Equal(t, document.StatusCompleted, p.orch.Ingest(ctx, "a", "tenant-a", "secret merger plans for tenant a").Status)
	require.Equal(t, document.StatusCompleted, p.orch.Ingest(ctx, "b", "tenant-b", "holiday calendar for tenant b").Status)

	matches, err := p.store.Search(ctx, "tenant-b", "secret merger plans", 10)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, "b", m.DocumentID)
	}
}

func TestIngest_ReprocessReplacesVectors(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, pending("doc", "acme"))

	long := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	require.Equal(t, document.StatusCompleted, p.orch.Ingest(ctx, "doc", "acme", long).Status)
	first, err := p.store.CountDocumentVectors(ctx, "acme", "doc")
	require.NoError(t, err)

	// Completed documents are never claimed again.
	assert.True(t, p.orch.Ingest(ctx, "doc", "acme", "short").Skipped)

	require.NoError(t, p.docs.Fail(ctx, "doc", "forced"))
	require.Equal(t, document.StatusCompleted, p.orch.Ingest(ctx, "doc", "acme", "short replacement").Status)

	second, err := p.store.CountDocumentVectors(ctx, "acme", "doc")
	require.NoError(t, err)
	assert.Greater(t, first, second)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, p.docs.get("doc").ChunkCount)
}

func TestIngest_ConcurrentDeliveriesProcessOnce(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, pending("doc", "acme"))

	var wg sync.WaitGroup
	outcomes := make([]worker.Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = p.orch.Ingest(ctx, "doc", "acme", "the same document delivered many times")
		}(i)
	}
	wg.Wait()

	completed := 0
	for _, out := range outcomes {
		if out.Status == document.StatusCompleted {
			completed++
		} else {
			assert.True(t, out.Skipped)
		}
	}
	assert.Equal(t, 1, completed)

	stored, err := p.store.CountDocumentVectors(ctx, "acme", "doc")
	require.NoError(t, err)
	assert.Equal(t, p.docs.get("doc").ChunkCount, stored)
}

func TestIngest_LargeDocumentCrossesBatches(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, pending("big", "acme"))

	var sb strings.Builder
	for i := range 400 {
		fmt.Fprintf(&sb, "sentence number %d about topic %d. ", i, i%7)
	}
	out := p.orch.Ingest(ctx, "big", "acme", sb.String())
	require.Equal(t, document.StatusCompleted, out.Status)
	assert.Greater(t, out.ChunkCount, vector.DefaultBatchSize)

	stored, err := p.store.CountDocumentVectors(ctx, "acme", "big")
	require.NoError(t, err)
	assert.Equal(t, out.ChunkCount, stored)
}

type brokenEmbedder struct{ *testutils.HashEmbedder }

func (b brokenEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func TestIngest_EmbeddingFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore(e2eDim)
	store := vector.NewStore(vector.NewRegistry(mem), mem, brokenEmbedder{testutils.NewHashEmbedder(e2eDim)})
	docs := newMemoryDocs(pending("doc", "acme"))
	orch := worker.NewOrchestrator(docs, worker.PlainTextExtractor{}, nil, store, nil, nil, nil)

	out := orch.Ingest(ctx, "doc", "acme", "anything at all")

	assert.Equal(t, document.StatusFailed, out.Status)
	got := docs.get("doc")
	assert.Equal(t, document.StatusFailed, got.Status)
	assert.Zero(t, got.ChunkCount)
	assert.Contains(t, got.Error, "quota exceeded")

	stored, err := store.CountDocumentVectors(ctx, "acme", "doc")
	require.NoError(t, err)
	assert.Zero(t, stored)
}

// racingDelete runs a full document delete (vectors, then the row) after the
// claim and before the chunks are written.
type racingDelete struct {
	*vector.Store
	docs *memoryDocs
}

func (r racingDelete) UpsertChunks(ctx context.Context, ns, doc string, chunks []vector.Chunk) (int, error) {
	if err := r.Store.DeleteDocumentVectors(ctx, ns, doc); err != nil {
		return 0, err
	}
	r.docs.remove(doc)
	return r.Store.UpsertChunks(ctx, ns, doc, chunks)
}

func TestIngest_DeleteDuringIngestionLeavesNoVectors(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, pending("doc", "acme"))
	orch := worker.NewOrchestrator(p.docs, worker.PlainTextExtractor{}, nil, racingDelete{Store: p.store, docs: p.docs}, nil, nil, nil)

	out := orch.Ingest(ctx, "doc", "acme", "Release notes for the spring launch of the billing dashboard.")
	assert.True(t, out.Skipped)
	assert.NotEqual(t, document.StatusCompleted, out.Status)

	stored, err := p.store.CountDocumentVectors(ctx, "acme", "doc")
	require.NoError(t, err)
	assert.Zero(t, stored)

	matches, err := p.store.Search(ctx, "acme", "billing dashboard launch", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
