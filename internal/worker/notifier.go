package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
)

// NSQNotifier publishes status events to the document status topic for
// whatever delivers them to users.
type NSQNotifier struct {
	pub TaskPublisher
}

func NewNSQNotifier(pub TaskPublisher) *NSQNotifier {
	return &NSQNotifier{pub: pub}
}

func (n *NSQNotifier) Notify(ctx context.Context, event StatusEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.pub.Publish(config.TopicDocumentStatus, body)
}

// LogNotifier only logs transitions. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, event StatusEvent) error {
	slog.InfoContext(ctx, "document status changed", "status", event.Status, "chunk_count", event.ChunkCount)
	return nil
}
