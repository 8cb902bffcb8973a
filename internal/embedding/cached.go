package embedding

import (
	"context"
	"fmt"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/metrics"
)

// CachedProvider resolves vectors through a Cache and falls back to the
// wrapped Provider for misses. Cache failures never surface to callers.
type CachedProvider struct {
	next    Provider
	cache   Cache
	metrics *metrics.Metrics
}

func Cached(next Provider, cache Cache, m *metrics.Metrics) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, metrics: m}
}

func (p *CachedProvider) Dimension() int {
	return p.next.Dimension()
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Identical texts in one batch are embedded once.
	pending := make(map[string][]int)
	var misses []string
	for i, text := range texts {
		if vec, ok := p.cache.Get(ctx, text); ok && len(vec) == p.next.Dimension() {
			out[i] = vec
			continue
		}
		if _, seen := pending[text]; !seen {
			misses = append(misses, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	vectors, err := p.next.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(misses) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(misses))
	}
	p.metrics.TextsEmbedded(len(misses))

	for i, text := range misses {
		p.cache.Put(ctx, text, vectors[i])
		for _, idx := range pending[text] {
			out[idx] = vectors[i]
		}
	}
	return out, nil
}
