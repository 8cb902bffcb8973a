// Package embedding defines the embedding provider contract and the
// decorators layered over it: a best-effort cache and a rate limiter.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProviderInit is returned by every call once a provider failed to
	// initialize. It is a configuration error and is never retried.
	ErrProviderInit = errors.New("embedding provider initialization failed")

	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Cache is a best-effort text -> vector lookup. Implementations swallow
// their own failures and report them as misses.
type Cache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Put(ctx context.Context, text string, vector []float32)
}

func CheckDimension(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dimension)
	}
	return nil
}
