package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/job"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/metrics"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/middleware"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/text"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

const terminalWriteTimeout = 10 * time.Second

// Orchestrator drives one document through
// PENDING -> PROCESSING -> COMPLETED | FAILED. It is the only writer of a
// document's status and chunk count.
type Orchestrator struct {
	docs      DocumentStore
	extractor Extractor
	chunker   *text.Chunker
	vectors   VectorWriter
	notifier  Notifier
	jobs      JobRecorder
	metrics   *metrics.Metrics
}

func NewOrchestrator(docs DocumentStore, extractor Extractor, chunker *text.Chunker, vectors VectorWriter, notifier Notifier, jobs JobRecorder, m *metrics.Metrics) *Orchestrator {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if chunker == nil {
		chunker = text.NewChunker()
	}
	return &Orchestrator{
		docs:      docs,
		extractor: extractor,
		chunker:   chunker,
		vectors:   vectors,
		notifier:  notifier,
		jobs:      jobs,
		metrics:   m,
	}
}

// Ingest processes text that is already in memory.
func (o *Orchestrator) Ingest(ctx context.Context, documentID, namespaceID, rawText string) Outcome {
	return o.Process(ctx, document.IngestTask{
		DocumentID:    documentID,
		NamespaceID:   namespaceID,
		RawText:       rawText,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
}

// Process runs one ingestion task. Errors are recorded on the document and
// reported in the Outcome; nothing is returned to a caller to retry.
func (o *Orchestrator) Process(ctx context.Context, task document.IngestTask) (out Outcome) {
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}
	ctx = middleware.WithDocument(ctx, task.NamespaceID, task.DocumentID)
	start := time.Now()

	claimed, err := o.docs.Claim(ctx, task.DocumentID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to claim document", "error", err)
		return Outcome{Err: fmt.Errorf("claim document: %w", err)}
	}
	if !claimed {
		slog.InfoContext(ctx, "document not claimable, skipping")
		return Outcome{Skipped: true}
	}

	if task.SourcePath != "" {
		defer removeSource(ctx, task.SourcePath)
	}
	defer func() {
		if r := recover(); r != nil {
			out = o.fail(ctx, task, fmt.Errorf("panic during ingestion: %v", r), start)
		}
	}()

	o.notify(ctx, task, StatusEvent{Status: document.StatusProcessing})

	raw := task.RawText
	if task.SourcePath != "" {
		raw, err = o.extractor.Extract(ctx, task.SourcePath)
		if err != nil {
			return o.fail(ctx, task, fmt.Errorf("extract text: %w", err), start)
		}
		// The file is removed on return; a retry must carry the text itself.
		task.SourcePath, task.RawText = "", raw
	}

	count, err := o.index(ctx, task, raw)
	if err != nil {
		return o.fail(ctx, task, err, start)
	}

	tctx, cancel := terminalContext(ctx)
	defer cancel()
	if err := o.docs.Complete(tctx, task.DocumentID, count); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return o.discard(ctx, tctx, task)
		}
		return o.fail(ctx, task, fmt.Errorf("mark completed: %w", err), start)
	}

	slog.InfoContext(ctx, "document indexed", "chunks", count, "elapsed", time.Since(start))
	o.notify(tctx, task, StatusEvent{Status: document.StatusCompleted, ChunkCount: count})
	o.metrics.IngestionFinished(string(document.StatusCompleted), time.Since(start))
	return Outcome{Status: document.StatusCompleted, ChunkCount: count}
}

// index replaces whatever vectors the document had with the chunks of raw.
func (o *Orchestrator) index(ctx context.Context, task document.IngestTask, raw string) (int, error) {
	var chunks []vector.Chunk
	for i, c := range o.chunker.All(raw) {
		chunks = append(chunks, vector.Chunk{Text: c, Index: i})
	}

	if err := o.vectors.DeleteDocumentVectors(ctx, task.NamespaceID, task.DocumentID); err != nil {
		return 0, fmt.Errorf("clear previous vectors: %w", err)
	}
	if len(chunks) == 0 {
		return 0, ErrNoContent
	}

	n, err := o.vectors.UpsertChunks(ctx, task.NamespaceID, task.DocumentID, chunks)
	if err != nil {
		cctx, cancel := terminalContext(ctx)
		defer cancel()
		if delErr := o.vectors.DeleteDocumentVectors(cctx, task.NamespaceID, task.DocumentID); delErr != nil {
			slog.WarnContext(ctx, "failed to remove partial vectors", "error", delErr)
		}
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return n, nil
}

// discard drops the vectors of a document that was deleted mid-ingestion.
func (o *Orchestrator) discard(ctx, tctx context.Context, task document.IngestTask) Outcome {
	slog.WarnContext(ctx, "document deleted during ingestion, discarding vectors")
	if err := o.vectors.DeleteDocumentVectors(tctx, task.NamespaceID, task.DocumentID); err != nil {
		// A redelivery cannot claim a deleted row, so there is nothing to retry.
		slog.ErrorContext(ctx, "failed to discard vectors of deleted document", "error", err)
	}
	return Outcome{Skipped: true}
}

func (o *Orchestrator) fail(ctx context.Context, task document.IngestTask, cause error, start time.Time) Outcome {
	slog.ErrorContext(ctx, "ingestion failed", "error", cause)

	tctx, cancel := terminalContext(ctx)
	defer cancel()

	if err := o.docs.Fail(tctx, task.DocumentID, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to mark document failed", "error", err)
	}
	o.notify(tctx, task, StatusEvent{Status: document.StatusFailed, Error: cause.Error()})
	o.recordFailure(tctx, task, cause)
	o.metrics.IngestionFinished(string(document.StatusFailed), time.Since(start))

	return Outcome{Status: document.StatusFailed, Err: cause}
}

func (o *Orchestrator) recordFailure(ctx context.Context, task document.IngestTask, cause error) {
	if o.jobs == nil || errors.Is(cause, ErrNoContent) {
		return
	}
	payload, err := json.Marshal(task)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode task for retry", "error", err)
		return
	}

	failed := &job.Job{
		DocumentID:  task.DocumentID,
		NamespaceID: task.NamespaceID,
		Handler:     HandlerName,
		Payload:     payload,
		Error:       cause.Error(),
	}
	if err := o.jobs.Save(ctx, failed); err != nil {
		slog.ErrorContext(ctx, "failed to save failed job", "error", err)
		return
	}
	slog.InfoContext(ctx, "saved failed job for retry", "job_id", failed.ID)
}

func (o *Orchestrator) notify(ctx context.Context, task document.IngestTask, event StatusEvent) {
	event.NamespaceID = task.NamespaceID
	event.DocumentID = task.DocumentID
	event.DisplayName = task.DisplayName
	event.CorrelationID = middleware.GetCorrelationID(ctx)
	event.OccurredAt = time.Now().UTC()

	if err := o.notifier.Notify(ctx, event); err != nil {
		slog.WarnContext(ctx, "status notification failed", "error", err, "status", event.Status)
	}
}

// terminalContext outlives a cancelled or expired task context so the final
// status write still happens.
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

func removeSource(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "failed to remove source file", "error", err, "path", path)
	}
}
