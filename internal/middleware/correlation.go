package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type key int

const (
	CorrelationKey key = iota
	namespaceKey
	documentKey
)

const CorrelationHeader = "X-Correlation-ID"

func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := WithCorrelationID(r.Context(), id)
		w.Header().Set(CorrelationHeader, id)

		start := time.Now()
		slog.InfoContext(ctx, "request received", "method", r.Method, "path", r.URL.Path) // #nosec G706 -- r.URL.Path is parsed by net/http

		next.ServeHTTP(w, r.WithContext(ctx))

		slog.InfoContext(ctx, "request completed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start)) // #nosec G706
	})
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return "unknown"
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}

// WithDocument tags ctx with the namespace and document being processed so
// every log line emitted under it can be traced back to one ingestion.
func WithDocument(ctx context.Context, namespaceID, documentID string) context.Context {
	ctx = context.WithValue(ctx, namespaceKey, namespaceID)
	return context.WithValue(ctx, documentKey, documentID)
}

func NamespaceID(ctx context.Context) string {
	id, _ := ctx.Value(namespaceKey).(string)
	return id
}

func DocumentID(ctx context.Context) string {
	id, _ := ctx.Value(documentKey).(string)
	return id
}
