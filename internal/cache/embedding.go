package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/metrics"
)

const embeddingPrefix = "emb."

// EmbeddingCache maps the exact text of a chunk to its vector. Vectors for a
// fixed model never change, so entries are only ever written or expired.
type EmbeddingCache struct {
	bucket  Bucket
	metrics *metrics.Metrics
}

func NewEmbeddingCache(bucket Bucket, m *metrics.Metrics) *EmbeddingCache {
	return &EmbeddingCache{bucket: bucket, metrics: m}
}

func EmbeddingKey(text string) string {
	return embeddingPrefix + ContentHash(text)
}

func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.bucket.Get(ctx, EmbeddingKey(text))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			slog.WarnContext(ctx, "embedding cache read failed", "error", err)
			c.metrics.CacheLookup("embedding", "error")
			return nil, false
		}
		c.metrics.CacheLookup("embedding", "miss")
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil || len(vector) == 0 {
		slog.WarnContext(ctx, "embedding cache entry unreadable", "error", err)
		c.metrics.CacheLookup("embedding", "error")
		return nil, false
	}

	c.metrics.CacheLookup("embedding", "hit")
	return vector, true
}

func (c *EmbeddingCache) Put(ctx context.Context, text string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		slog.WarnContext(ctx, "embedding cache encode failed", "error", err)
		return
	}
	if err := c.bucket.Put(ctx, EmbeddingKey(text), data); err != nil {
		slog.WarnContext(ctx, "embedding cache write failed", "error", err)
	}
}
