package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/adapter/memory"
	wstore "github.com/IvanBalandraCamacho/Caso01-sub000/internal/adapter/weaviate"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/cache"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/config"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

const (
	embeddingBucket = "embeddings"
	searchBucket    = "search_results"
)

// Dependencies are the connections every process mode shares.
type Dependencies struct {
	DB       *sql.DB
	Schema   vector.SchemaClient
	Backend  vector.Backend
	Producer *nsq.Producer

	EmbeddingBucket cache.Bucket
	SearchBucket    cache.Bucket

	nc *nats.Conn
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}
	ok := false
	defer func() {
		if !ok {
			deps.Close()
		}
	}()

	attempts, delay := cfg.BootstrapRetryAttempts, cfg.RetryDelay()

	// Database
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	deps.DB = db
	if err := WaitFor(ctx, "postgres", attempts, delay, db.PingContext); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if err := Migrate(db, cfg.MigrationPath); err != nil {
		return nil, err
	}

	// Vector store
	switch cfg.VectorBackend {
	case config.BackendMemory:
		mem := memory.NewStore(cfg.EmbeddingDimension)
		deps.Schema, deps.Backend = mem, mem
		slog.Warn("using in-process vector store, vectors are lost on restart")
	default:
		client, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
		if err != nil {
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}
		if err := WaitFor(ctx, "weaviate", attempts, delay, weaviateReady(client)); err != nil {
			return nil, fmt.Errorf("weaviate not ready: %w", err)
		}
		deps.Schema = vector.NewWeaviateClientAdapter(client)
		deps.Backend = wstore.NewStore(client)
	}

	// Caches
	switch cfg.CacheBackend {
	case config.BackendMemory:
		deps.EmbeddingBucket = cache.NewMemoryBucket(cfg.EmbeddingCacheTTL)
		deps.SearchBucket = cache.NewMemoryBucket(cfg.SearchCacheTTL)
	default:
		if err := deps.openKV(ctx, cfg); err != nil {
			return nil, err
		}
	}

	// NSQ Producer
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}
	deps.Producer = producer
	createTopics(cfg.NSQDHTTP)

	ok = true
	return deps, nil
}

func (d *Dependencies) openKV(ctx context.Context, cfg *config.Config) error {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("caso-ingest"), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	d.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}
	if d.EmbeddingBucket, err = cache.OpenKVBucket(ctx, js, embeddingBucket, cfg.EmbeddingCacheTTL); err != nil {
		return err
	}
	if d.SearchBucket, err = cache.OpenKVBucket(ctx, js, searchBucket, cfg.SearchCacheTTL); err != nil {
		return err
	}
	return nil
}

func (d *Dependencies) Close() {
	if d.Producer != nil {
		d.Producer.Stop()
	}
	if d.nc != nil {
		d.nc.Close()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
}

func Migrate(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	return nil
}

func weaviateReady(client *weaviate.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		ready, err := client.Misc().ReadyChecker().Do(ctx)
		if err != nil {
			return err
		}
		if !ready {
			return errors.New("weaviate is not ready")
		}
		return nil
	}
}

func createTopics(nsqdHTTP string) {
	if nsqdHTTP == "" {
		return
	}
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(config.TopicIngestDocument)
		create(config.TopicDocumentStatus)
	}()
}

// WaitFor calls check until it succeeds, attempts run out or ctx ends.
func WaitFor(ctx context.Context, name string, attempts int, delay time.Duration, check func(context.Context) error) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = check(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		slog.Warn("dependency not ready, retrying", "dependency", name, "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
