package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/embedding"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/metrics"
)

const (
	DefaultBatchSize = 100
	DefaultTimeout   = 60 * time.Second
)

// Store is the only writer of vector store contents. Every namespace maps to
// one class, provisioned through the Registry on first write.
type Store struct {
	registry  *Registry
	backend   Backend
	embedder  embedding.Provider
	results   ResultCache
	metrics   *metrics.Metrics
	batchSize int
	timeout   time.Duration
}

type StoreOption func(*Store)

func WithBatchSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithTimeout bounds every public operation, including the embedding calls
// made on its behalf.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithResultCache(c ResultCache) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.results = c
		}
	}
}

func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

func NewStore(registry *Registry, backend Backend, embedder embedding.Provider, opts ...StoreOption) *Store {
	s := &Store{
		registry:  registry,
		backend:   backend,
		embedder:  embedder,
		results:   nopResultCache{},
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertChunks embeds and writes chunks for one document and returns the
// number of points written. Full intermediate batches are written in the
// background; the final batch is written inline and the call returns only
// once every batch has been acknowledged.
func (s *Store) UpsertChunks(ctx context.Context, namespace, documentID string, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	className, err := s.registry.Ensure(ctx, namespace)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))

		points, err := s.buildPoints(gctx, namespace, documentID, chunks[start:end])
		if err != nil {
			if waitErr := g.Wait(); waitErr != nil {
				err = waitErr
			}
			return 0, err
		}

		if end < len(chunks) {
			g.Go(func() error {
				return s.writeBatch(gctx, className, points, "async")
			})
			continue
		}

		if err := s.writeBatch(gctx, className, points, "sync"); err != nil {
			_ = g.Wait()
			s.registry.Forget(namespace)
			return 0, err
		}
	}

	if err := g.Wait(); err != nil {
		s.registry.Forget(namespace)
		return 0, err
	}

	s.results.Invalidate(ctx, namespace)
	s.metrics.ChunksWritten(len(chunks))
	return len(chunks), nil
}

func (s *Store) buildPoints(ctx context.Context, namespace, documentID string, chunks []Chunk) ([]Point, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := s.embedder.Dimension()
	points := make([]Point, len(chunks))
	for i, c := range chunks {
		if err := embedding.CheckDimension(vectors[i], dim); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		points[i] = Point{
			ID:          uuid.New().String(),
			DocumentID:  documentID,
			NamespaceID: namespace,
			Text:        c.Text,
			ChunkIndex:  c.Index,
			Vector:      vectors[i],
		}
	}
	return points, nil
}

func (s *Store) writeBatch(ctx context.Context, className string, points []Point, mode string) error {
	start := time.Now()
	if err := s.backend.WritePoints(ctx, className, points); err != nil {
		return fmt.Errorf("write batch of %d points: %w", len(points), err)
	}
	s.metrics.BatchWritten(mode, time.Since(start))
	return nil
}

// Search returns up to topK matches for query in namespace, best first.
// Infrastructure failures degrade to an empty list; only a provider that
// cannot initialize is reported as an error.
func (s *Store) Search(ctx context.Context, namespace, query string, topK int) ([]Match, error) {
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []Match{}, nil
	}

	if cached, ok := s.results.Get(ctx, namespace, query, topK); ok {
		s.metrics.Search("cache_hit")
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.registry.Exists(ctx, namespace)
	if err != nil {
		slog.ErrorContext(ctx, "search failed: collection check", "error", err, "namespace_id", namespace)
		s.metrics.Search("error")
		return []Match{}, nil
	}
	if !exists {
		s.metrics.Search("empty")
		return []Match{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embedding.ErrProviderInit) {
			return nil, err
		}
		slog.ErrorContext(ctx, "search failed: embed query", "error", err, "namespace_id", namespace)
		s.metrics.Search("error")
		return []Match{}, nil
	}
	if err := embedding.CheckDimension(vec, s.embedder.Dimension()); err != nil {
		slog.ErrorContext(ctx, "search failed: query vector", "error", err, "namespace_id", namespace)
		s.metrics.Search("error")
		return []Match{}, nil
	}

	matches, err := s.backend.NearVector(ctx, ClassName(namespace), vec, topK)
	if err != nil {
		slog.ErrorContext(ctx, "search failed: near vector", "error", err, "namespace_id", namespace)
		s.metrics.Search("error")
		return []Match{}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	if matches == nil {
		matches = []Match{}
	}

	s.results.Put(ctx, namespace, query, topK, matches)
	s.metrics.Search("ok")
	return matches, nil
}

// DeleteDocumentVectors removes every point of documentID in namespace.
// It is a no-op when the namespace has no collection.
func (s *Store) DeleteDocumentVectors(ctx context.Context, namespace, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.registry.Exists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.backend.DeleteByDocument(ctx, ClassName(namespace), documentID); err != nil {
		return fmt.Errorf("delete vectors for document %s: %w", documentID, err)
	}
	s.results.Invalidate(ctx, namespace)
	return nil
}

// DeleteNamespace drops the namespace's collection and every point in it.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.registry.Drop(ctx, namespace); err != nil {
		return err
	}
	s.results.Invalidate(ctx, namespace)
	return nil
}

// CountDocumentVectors counts the points stored for documentID, or for the
// whole namespace when documentID is empty.
func (s *Store) CountDocumentVectors(ctx context.Context, namespace, documentID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.registry.Exists(ctx, namespace)
	if err != nil || !exists {
		return 0, err
	}
	return s.backend.Count(ctx, ClassName(namespace), documentID)
}

func (s *Store) Registry() *Registry {
	return s.registry
}
