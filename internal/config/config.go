package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

var ErrInvalidValue = errors.New("invalid configuration value")

const (
	BackendWeaviate = "weaviate"
	BackendNATS     = "nats"
	BackendMemory   = "memory"
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"caso"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"caso"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	NATSURL string `envconfig:"NATS_URL" default:"nats://nats:4222"`

	// Backends
	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"weaviate"`
	CacheBackend  string `envconfig:"CACHE_BACKEND" default:"nats"`

	// Embeddings
	GeminiAPIKey       string  `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel     string  `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDimension int     `envconfig:"EMBEDDING_DIMENSION" default:"3072"`
	EmbeddingRPS       float64 `envconfig:"EMBEDDING_RPS" default:"20"`
	EmbeddingBurst     int     `envconfig:"EMBEDDING_BURST" default:"40"`

	// Pipeline
	ChunkMaxLength          int `envconfig:"CHUNK_MAX_LENGTH" default:"512"`
	ChunkOverlap            int `envconfig:"CHUNK_OVERLAP" default:"50"`
	UpsertBatchSize         int `envconfig:"UPSERT_BATCH_SIZE" default:"100"`
	VectorTimeoutSeconds    int `envconfig:"VECTOR_TIMEOUT_SECONDS" default:"60"`
	IngestionConcurrency    int `envconfig:"INGESTION_CONCURRENCY" default:"8"`
	IngestionTimeoutSeconds int `envconfig:"INGESTION_TIMEOUT_SECONDS" default:"600"`

	// Caches
	EmbeddingCacheTTL time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`
	SearchCacheTTL    time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"5m"`

	// Search
	SearchDefaultTopK int `envconfig:"SEARCH_DEFAULT_TOP_K" default:"5"`
	SearchMaxTopK     int `envconfig:"SEARCH_MAX_TOP_K" default:"50"`

	RegistryRevalidateInterval time.Duration `envconfig:"REGISTRY_REVALIDATE_INTERVAL" default:"10m"`

	EnableAPI     bool   `envconfig:"ENABLE_API" default:"true"`
	EnableWorker  bool   `envconfig:"ENABLE_WORKER" default:"true"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	UploadDir    string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	MaxFileBytes int64  `envconfig:"MAX_FILE_BYTES" default:"33554432"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars set in the shell win; .env files only fill gaps.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION", ErrMissingRequired)
	}
	if c.ChunkMaxLength <= 0 {
		return fmt.Errorf("%w: CHUNK_MAX_LENGTH must be positive", ErrInvalidValue)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: CHUNK_OVERLAP must not be negative", ErrInvalidValue)
	}
	if c.UpsertBatchSize <= 0 {
		return fmt.Errorf("%w: UPSERT_BATCH_SIZE must be positive", ErrInvalidValue)
	}
	switch c.VectorBackend {
	case BackendWeaviate, BackendMemory:
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND %q", ErrInvalidValue, c.VectorBackend)
	}
	switch c.CacheBackend {
	case BackendNATS, BackendMemory:
	default:
		return fmt.Errorf("%w: CACHE_BACKEND %q", ErrInvalidValue, c.CacheBackend)
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

func (c *Config) VectorTimeout() time.Duration {
	return time.Duration(c.VectorTimeoutSeconds) * time.Second
}

func (c *Config) IngestionTimeout() time.Duration {
	return time.Duration(c.IngestionTimeoutSeconds) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.BootstrapRetryDelaySeconds) * time.Second
}
