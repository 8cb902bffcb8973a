package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/middleware"
)

var ErrInvalidRequest = errors.New("invalid document request")

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// VectorCleaner removes a document's or a namespace's vectors.
type VectorCleaner interface {
	DeleteDocumentVectors(ctx context.Context, namespaceID, documentID string) error
	DeleteNamespace(ctx context.Context, namespaceID string) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	vectors VectorCleaner
}

func NewService(repo Repository, pub EventPublisher, vectors VectorCleaner) *Service {
	return &Service{repo: repo, pub: pub, vectors: vectors}
}

type EnqueueRequest struct {
	NamespaceID string
	DisplayName string
	SourcePath  string
	RawText     string
}

// Register creates the PENDING status row for a new document.
func (s *Service) Register(ctx context.Context, req EnqueueRequest) (*Document, error) {
	if strings.TrimSpace(req.NamespaceID) == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidRequest)
	}

	doc := &Document{
		ID:          uuid.New().String(),
		NamespaceID: req.NamespaceID,
		DisplayName: req.DisplayName,
		Status:      StatusPending,
		SourcePath:  req.SourcePath,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Enqueue registers a document and hands it to the ingestion queue. A
// document whose task could not be published is removed again.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*Document, error) {
	if req.SourcePath == "" && strings.TrimSpace(req.RawText) == "" {
		return nil, fmt.Errorf("%w: source path or text is required", ErrInvalidRequest)
	}

	doc, err := s.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(IngestTask{
		DocumentID:    doc.ID,
		NamespaceID:   doc.NamespaceID,
		DisplayName:   doc.DisplayName,
		SourcePath:    req.SourcePath,
		RawText:       req.RawText,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		return nil, err
	}

	if err := s.pub.Publish(config.TopicIngestDocument, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest task", "error", err, "document_id", doc.ID)
		if delErr := s.repo.Delete(ctx, doc.NamespaceID, doc.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to remove unpublished document", "error", delErr, "document_id", doc.ID)
		}
		return nil, fmt.Errorf("publish ingest task: %w", err)
	}

	slog.InfoContext(ctx, "published ingest task", "document_id", doc.ID, "namespace_id", doc.NamespaceID)
	return doc, nil
}

func (s *Service) Status(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, namespaceID string) ([]Document, error) {
	docs, err := s.repo.List(ctx, namespaceID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// Delete removes the document's vectors, then its row. Deleting an unknown
// document succeeds.
func (s *Service) Delete(ctx context.Context, namespaceID, id string) error {
	if err := s.vectors.DeleteDocumentVectors(ctx, namespaceID, id); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return s.repo.Delete(ctx, namespaceID, id)
}

// DeleteNamespace drops the namespace's collection and every document row in it.
func (s *Service) DeleteNamespace(ctx context.Context, namespaceID string) error {
	if err := s.vectors.DeleteNamespace(ctx, namespaceID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	n, err := s.repo.DeleteByNamespace(ctx, namespaceID)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "namespace deleted", "namespace_id", namespaceID, "documents", n)
	return nil
}
