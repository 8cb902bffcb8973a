package worker_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/job"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/worker"
)

type MockDocumentStore struct{ mock.Mock }

func (m *MockDocumentStore) Claim(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentStore) Complete(ctx context.Context, id string, chunkCount int) error {
	return m.Called(ctx, id, chunkCount).Error(0)
}

func (m *MockDocumentStore) Fail(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type MockVectorWriter struct{ mock.Mock }

func (m *MockVectorWriter) UpsertChunks(ctx context.Context, ns, doc string, chunks []vector.Chunk) (int, error) {
	args := m.Called(ctx, ns, doc, chunks)
	return args.Int(0), args.Error(1)
}

func (m *MockVectorWriter) DeleteDocumentVectors(ctx context.Context, ns, doc string) error {
	return m.Called(ctx, ns, doc).Error(0)
}

type MockExtractor struct{ mock.Mock }

func (m *MockExtractor) Extract(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

type MockJobRepo struct{ mock.Mock }

func (m *MockJobRepo) Save(ctx context.Context, j *job.Job) error {
	return m.Called(ctx, j).Error(0)
}

type MockTaskPublisher struct{ mock.Mock }

func (m *MockTaskPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

// recordingNotifier keeps every event in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []worker.StatusEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e worker.StatusEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) statuses() []document.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]document.Status, len(n.events))
	for i, e := range n.events {
		out[i] = e.Status
	}
	return out
}

// memoryDocs is a DocumentStore with the same claim semantics as the
// Postgres repository.
type memoryDocs struct {
	mu   sync.Mutex
	docs map[string]*document.Document
}

func newMemoryDocs(docs ...*document.Document) *memoryDocs {
	m := &memoryDocs{docs: map[string]*document.Document{}}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memoryDocs) Claim(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || (d.Status != document.StatusPending && d.Status != document.StatusFailed) {
		return false, nil
	}
	d.Status = document.StatusProcessing
	d.Error = ""
	return true, nil
}

func (m *memoryDocs) Complete(_ context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != document.StatusProcessing {
		return document.ErrNotFound
	}
	m.docs[id].Status = document.StatusCompleted
	m.docs[id].ChunkCount = n
	return nil
}

func (m *memoryDocs) Fail(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return nil
	}
	m.docs[id].Status = document.StatusFailed
	m.docs[id].ChunkCount = 0
	m.docs[id].Error = reason
	return nil
}

func (m *memoryDocs) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
}

func (m *memoryDocs) get(id string) document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.docs[id]
}
