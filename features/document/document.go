package document

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var ErrNotFound = errors.New("document not found")

// Document is the status row of one uploaded file. ChunkCount is only
// meaningful once Status is COMPLETED.
type Document struct {
	ID          string    `json:"id"`
	NamespaceID string    `json:"namespace_id"`
	DisplayName string    `json:"display_name"`
	Status      Status    `json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	SourcePath  string    `json:"-"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IngestTask is the queue payload for one document. RawText carries the
// content inline when there is no source file to extract from.
type IngestTask struct {
	DocumentID    string `json:"document_id"`
	NamespaceID   string `json:"namespace_id"`
	DisplayName   string `json:"display_name,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
	RawText       string `json:"raw_text,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, namespaceID string) ([]Document, error)

	// Claim moves a PENDING or FAILED document to PROCESSING and reports
	// whether this caller won it.
	Claim(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string, chunkCount int) error
	Fail(ctx context.Context, id, reason string) error

	Delete(ctx context.Context, namespaceID, id string) error
	DeleteByNamespace(ctx context.Context, namespaceID string) (int64, error)

	CountByStatus(ctx context.Context) (map[Status]int, error)
	SumChunks(ctx context.Context) (int, error)
}
