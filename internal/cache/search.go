package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/metrics"
)

const searchPrefix = "search."

// SearchCache maps (namespace, query, top_k) to a ranked result list. T is the
// match type; it must round-trip through encoding/json.
type SearchCache[T any] struct {
	bucket  Bucket
	metrics *metrics.Metrics
}

func NewSearchCache[T any](bucket Bucket, m *metrics.Metrics) *SearchCache[T] {
	return &SearchCache[T]{bucket: bucket, metrics: m}
}

// namespacePrefix digests the namespace so arbitrary workspace ids stay
// within the key alphabet of the backing store.
func namespacePrefix(namespace string) string {
	return searchPrefix + ContentHash(namespace)[:16] + "."
}

func SearchKey(namespace, query string, topK int) string {
	return fmt.Sprintf("%s%s.%d", namespacePrefix(namespace), ContentHash(query), topK)
}

func (c *SearchCache[T]) Get(ctx context.Context, namespace, query string, topK int) ([]T, bool) {
	data, err := c.bucket.Get(ctx, SearchKey(namespace, query, topK))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			slog.WarnContext(ctx, "search cache read failed", "error", err)
			c.metrics.CacheLookup("search", "error")
			return nil, false
		}
		c.metrics.CacheLookup("search", "miss")
		return nil, false
	}

	var results []T
	if err := json.Unmarshal(data, &results); err != nil {
		slog.WarnContext(ctx, "search cache entry unreadable", "error", err)
		c.metrics.CacheLookup("search", "error")
		return nil, false
	}
	if results == nil {
		results = []T{}
	}

	c.metrics.CacheLookup("search", "hit")
	return results, true
}

func (c *SearchCache[T]) Put(ctx context.Context, namespace, query string, topK int, results []T) {
	if results == nil {
		results = []T{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		slog.WarnContext(ctx, "search cache encode failed", "error", err)
		return
	}
	if err := c.bucket.Put(ctx, SearchKey(namespace, query, topK), data); err != nil {
		slog.WarnContext(ctx, "search cache write failed", "error", err)
	}
}

// Invalidate drops every cached result for namespace. Called after any write
// or delete so a search never outlives the vectors it was computed from.
func (c *SearchCache[T]) Invalidate(ctx context.Context, namespace string) {
	if err := c.bucket.DeletePrefix(ctx, namespacePrefix(namespace)); err != nil {
		slog.WarnContext(ctx, "search cache invalidation failed", "error", err, "namespace_id", namespace)
	}
}
