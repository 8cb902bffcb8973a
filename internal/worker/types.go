package worker

import (
	"context"
	"errors"
	"time"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/job"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

// HandlerName identifies the ingestion worker in failed job records.
const HandlerName = "ingest-worker"

var ErrNoContent = errors.New("document has no extractable text")

// DocumentStore owns the document status row.
type DocumentStore interface {
	Claim(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string, chunkCount int) error
	Fail(ctx context.Context, id, reason string) error
}

// Extractor turns an uploaded file into raw text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type VectorWriter interface {
	UpsertChunks(ctx context.Context, namespaceID, documentID string, chunks []vector.Chunk) (int, error)
	DeleteDocumentVectors(ctx context.Context, namespaceID, documentID string) error
}

type Notifier interface {
	Notify(ctx context.Context, event StatusEvent) error
}

type JobRecorder interface {
	Save(ctx context.Context, job *job.Job) error
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// StatusEvent is emitted on every document status transition.
type StatusEvent struct {
	NamespaceID   string          `json:"namespace_id"`
	DocumentID    string          `json:"document_id"`
	DisplayName   string          `json:"display_name,omitempty"`
	Status        document.Status `json:"status"`
	ChunkCount    int             `json:"chunk_count,omitempty"`
	Error         string          `json:"error,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Outcome is the result of one Process call. Skipped means another worker
// owns the document, it is already COMPLETED, or it was deleted before it
// could be completed. A zero Status with a non-nil
// Err means the document could not be claimed at all.
type Outcome struct {
	Status     document.Status
	ChunkCount int
	Skipped    bool
	Err        error
}
