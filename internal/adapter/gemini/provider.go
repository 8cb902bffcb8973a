// Package gemini is the embedding provider backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/embedding"
)

// MaxBatch is the most texts a single BatchEmbedContents request accepts.
const MaxBatch = 100

var errNoAPIKey = errors.New("gemini api key not configured")

// batchClient is the slice of the genai client the provider uses.
type batchClient interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

type connectFunc func(ctx context.Context) (batchClient, error)

// Provider creates its genai client on first use. The client, or the error
// that prevented creating it, is kept for the life of the process.
type Provider struct {
	model     string
	dimension int
	connect   connectFunc

	mu      sync.RWMutex
	client  batchClient
	initErr error
}

func NewProvider(apiKey, model string, dimension int, opts ...option.ClientOption) *Provider {
	p := &Provider{model: model, dimension: dimension}
	p.connect = func(ctx context.Context) (batchClient, error) {
		if apiKey == "" {
			return nil, errNoAPIKey
		}
		c, err := genai.NewClient(ctx, append(opts, option.WithAPIKey(apiKey))...)
		if err != nil {
			return nil, err
		}
		return &genaiClient{client: c, model: model}, nil
	}
	return p
}

func (p *Provider) Dimension() int {
	return p.dimension
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatch {
		end := min(start+MaxBatch, len(texts))

		slog.DebugContext(ctx, "embedding batch", "model", p.model, "size", end-start)
		vectors, err := client.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			slog.ErrorContext(ctx, "embedding failed", "error", err, "model", p.model)
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embed batch: got %d embeddings for %d texts", len(vectors), end-start)
		}
		for i, v := range vectors {
			if err := embedding.CheckDimension(v, p.dimension); err != nil {
				return nil, fmt.Errorf("text %d: %w", start+i, err)
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (p *Provider) getClient(ctx context.Context) (batchClient, error) {
	p.mu.RLock()
	if p.client != nil || p.initErr != nil {
		defer p.mu.RUnlock()
		return p.client, p.initErr
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check
	if p.client != nil || p.initErr != nil {
		return p.client, p.initErr
	}

	client, err := p.connect(context.WithoutCancel(ctx))
	if err != nil {
		p.initErr = fmt.Errorf("%w: %w", embedding.ErrProviderInit, err)
		slog.ErrorContext(ctx, "embedding provider unavailable", "error", err, "model", p.model)
		return nil, p.initErr
	}
	p.client = client
	slog.InfoContext(ctx, "embedding provider ready", "model", p.model)
	return client, nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

type genaiClient struct {
	client *genai.Client
	model  string
}

func (g *genaiClient) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e != nil {
			vectors[i] = e.Values
		}
	}
	return vectors, nil
}

func (g *genaiClient) Close() error {
	return g.client.Close()
}
