package logger

import (
	"context"
	"io"
	"log/slog"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/middleware"
)

// ContextHandler enriches every record with the correlation, namespace and
// document ids carried by the context.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if ns := middleware.NamespaceID(ctx); ns != "" {
		r.AddAttrs(slog.String("namespace_id", ns))
	}
	if doc := middleware.DocumentID(ctx); doc != "" {
		r.AddAttrs(slog.String("document_id", doc))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// New builds the JSON logger used by every command.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
