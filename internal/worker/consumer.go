package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/middleware"
)

type TaskProcessor interface {
	Process(ctx context.Context, task document.IngestTask) Outcome
}

// TaskConsumer feeds ingest.document messages to the orchestrator.
type TaskConsumer struct {
	processor TaskProcessor
	timeout   time.Duration
}

func NewTaskConsumer(p TaskProcessor, timeout time.Duration) *TaskConsumer {
	return &TaskConsumer{processor: p, timeout: timeout}
}

// HandleMessage acks everything except a document that could not be
// claimed because the status store was unreachable; NSQ redelivers those.
func (h *TaskConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var task document.IngestTask
	if err := json.Unmarshal(m.Body, &task); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	if task.CorrelationID == "" {
		task.CorrelationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), task.CorrelationID)

	if task.DocumentID == "" || task.NamespaceID == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping", "document_id", task.DocumentID, "namespace_id", task.NamespaceID)
		return nil
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	out := h.processor.Process(ctx, task)
	if out.Status == "" && out.Err != nil {
		return out.Err
	}
	return nil
}
