package job_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/job"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/testutils"
)

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	jobRepo := job.NewPostgresRepo(s.DB)
	docRepo := document.NewPostgresRepo(s.DB)
	ctx := context.Background()

	d1 := &document.Document{ID: "6f1c1a52-8d7e-4a59-9a59-3f6b1f0c0001", NamespaceID: "acme", Status: document.StatusPending}
	d2 := &document.Document{ID: "6f1c1a52-8d7e-4a59-9a59-3f6b1f0c0002", NamespaceID: "acme", Status: document.StatusPending}
	require.NoError(t, docRepo.Create(ctx, d1))
	require.NoError(t, docRepo.Create(ctx, d2))

	j1 := &job.Job{
		DocumentID:  d1.ID,
		NamespaceID: "acme",
		Handler:     "ingest-worker",
		Payload:     json.RawMessage(`{"document_id": "` + d1.ID + `"}`),
		Error:       "error 1",
	}
	require.NoError(t, jobRepo.Save(ctx, j1))

	// Sleep to ensure time difference for ordering test
	time.Sleep(100 * time.Millisecond)

	j2 := &job.Job{
		DocumentID:  d2.ID,
		NamespaceID: "acme",
		Handler:     "ingest-worker",
		Payload:     json.RawMessage(`{"document_id": "` + d2.ID + `"}`),
		Error:       "error 2",
	}
	require.NoError(t, jobRepo.Save(ctx, j2))

	jobs, err := jobRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, j2.ID, jobs[0].ID, "Newest job should be first")
	assert.Equal(t, j1.ID, jobs[1].ID, "Oldest job should be last")

	// A second failure of the same document reuses its row.
	again := &job.Job{DocumentID: d1.ID, NamespaceID: "acme", Handler: "ingest-worker", Payload: json.RawMessage(`{}`), Error: "error 3"}
	require.NoError(t, jobRepo.Save(ctx, again))
	assert.Equal(t, j1.ID, again.ID)
	assert.Equal(t, 1, again.Retries)

	// Concurrent failures of one document still leave a single row.
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, jobRepo.Save(ctx, &job.Job{DocumentID: d2.ID, NamespaceID: "acme", Handler: "ingest-worker", Payload: json.RawMessage(`{}`), Error: "concurrent"}))
		}()
	}
	wg.Wait()
	count, err := jobRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Deleting the namespace's documents cascades to their jobs.
	_, err = docRepo.DeleteByNamespace(ctx, "acme")
	require.NoError(t, err)

	count, err = jobRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
