// Package cache provides the shared, best-effort key-value caches used by the
// ingestion and retrieval paths. Entries expire through the bucket TTL; a
// failing backend degrades every lookup to a miss.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMiss reports an absent or expired key.
var ErrMiss = errors.New("cache miss")

// Bucket is a TTL-bounded key-value store. Keys are dot-separated tokens.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ContentHash returns the full hex SHA-256 digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
