package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/job"
	"github.com/IvanBalandraCamacho/Caso01-sub000/features/stats"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/adapter/gemini"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/cache"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/embedding"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/metrics"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/retrieval"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/text"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/worker"
)

// Core is the wired ingestion and retrieval pipeline, independent of how it
// is exposed (HTTP server, NSQ consumer or CLI).
type Core struct {
	Config  *config.Config
	Metrics *metrics.Metrics

	Embedder     embedding.Provider
	Vectors      *vector.Store
	Documents    *document.Service
	Jobs         *job.Service
	Retrieval    *retrieval.Service
	Orchestrator *worker.Orchestrator
	Stats        *stats.Service

	closers []io.Closer
}

// NewCore builds the pipeline on top of deps. When embedder is nil the Gemini
// provider is used, rate limited and cached.
func NewCore(cfg *config.Config, deps *Dependencies, embedder embedding.Provider, logger *slog.Logger) *Core {
	m := metrics.New()
	c := &Core{Config: cfg, Metrics: m}

	if embedder == nil {
		provider := gemini.NewProvider(cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
		c.closers = append(c.closers, provider)
		embedder = embedding.NewRateLimited(provider, cfg.EmbeddingRPS, cfg.EmbeddingBurst)
	}
	c.Embedder = embedding.Cached(embedder, cache.NewEmbeddingCache(deps.EmbeddingBucket, m), m)

	c.Vectors = vector.NewStore(
		vector.NewRegistry(deps.Schema),
		deps.Backend,
		c.Embedder,
		vector.WithBatchSize(cfg.UpsertBatchSize),
		vector.WithTimeout(cfg.VectorTimeout()),
		vector.WithResultCache(cache.NewSearchCache[vector.Match](deps.SearchBucket, m)),
		vector.WithMetrics(m),
	)

	docRepo := document.NewPostgresRepo(deps.DB)
	jobRepo := job.NewPostgresRepo(deps.DB)
	publisher := publisherOf(deps)

	c.Documents = document.NewService(docRepo, publisher, c.Vectors)
	c.Jobs = job.NewService(jobRepo, publisher, logger)
	c.Stats = stats.NewService(docRepo, jobRepo)
	c.Retrieval = retrieval.NewService(c.Vectors, c.queryLogger(cfg), cfg.SearchDefaultTopK, cfg.SearchMaxTopK)

	var notifier worker.Notifier = worker.LogNotifier{}
	if deps.Producer != nil {
		notifier = worker.NewNSQNotifier(deps.Producer)
	}
	chunker := text.NewChunker(text.WithMaxLength(cfg.ChunkMaxLength), text.WithOverlap(cfg.ChunkOverlap))
	c.Orchestrator = worker.NewOrchestrator(
		docRepo,
		worker.PlainTextExtractor{MaxBytes: cfg.MaxFileBytes},
		chunker,
		c.Vectors,
		notifier,
		jobRepo,
		m,
	)
	return c
}

func (c *Core) queryLogger(cfg *config.Config) *retrieval.QueryLogger {
	if cfg.QueryLogPath == "" {
		return retrieval.NewQueryLogger(os.Stdout)
	}
	l, f, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		return retrieval.NewQueryLogger(os.Stdout)
	}
	c.closers = append(c.closers, f)
	return l
}

// RevalidateRegistry drops registry entries whose class disappeared.
func (c *Core) RevalidateRegistry(ctx context.Context) {
	if err := c.Vectors.Registry().Revalidate(ctx); err != nil {
		slog.WarnContext(ctx, "registry revalidation failed", "error", err)
	}
}

func (c *Core) Close() {
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
}

type unavailablePublisher struct{}

func (unavailablePublisher) Publish(string, []byte) error {
	return errNoBroker
}

func publisherOf(deps *Dependencies) worker.TaskPublisher {
	if deps.Producer == nil {
		return unavailablePublisher{}
	}
	return deps.Producer
}
