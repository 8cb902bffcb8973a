package retrieval

import (
	"context"
	"time"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

const (
	DefaultTopK = 5
	MaxTopK     = 50
)

type Searcher interface {
	Search(ctx context.Context, namespace, query string, topK int) ([]vector.Match, error)
}

type SearchOptions struct {
	// TopK nil means the configured default. Zero or negative yields no results.
	TopK *int
}

// Service is the read path used by the MCP tool and the CLI.
type Service struct {
	store       Searcher
	logger      *QueryLogger
	defaultTopK int
	maxTopK     int
}

func NewService(store Searcher, l *QueryLogger, defaultTopK, maxTopK int) *Service {
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Service{store: store, logger: l, defaultTopK: min(defaultTopK, maxTopK), maxTopK: maxTopK}
}

func (s *Service) Search(ctx context.Context, namespace, query string, opts *SearchOptions) ([]vector.Match, error) {
	start := time.Now()
	topK := s.resolveTopK(opts)

	matches, err := s.store.Search(ctx, namespace, query, topK)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.LogContext(ctx, QueryLogEntry{
			NamespaceID: namespace,
			Query:       query,
			TopK:        topK,
			NumResults:  len(matches),
			Duration:    time.Since(start),
		})
	}
	return matches, nil
}

func (s *Service) resolveTopK(opts *SearchOptions) int {
	if opts == nil || opts.TopK == nil {
		return s.defaultTopK
	}
	return min(*opts.TopK, s.maxTopK)
}
