package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVBucket stores entries in a NATS JetStream key-value bucket whose TTL
// bounds the freshness of every entry.
type KVBucket struct {
	kv jetstream.KeyValue
}

func NewKVBucket(kv jetstream.KeyValue) *KVBucket {
	return &KVBucket{kv: kv}
}

// OpenKVBucket creates the bucket or updates its TTL if it already exists.
func OpenKVBucket(ctx context.Context, js jetstream.JetStream, name string, ttl time.Duration) (*KVBucket, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "content-addressed cache",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", name, err)
	}
	return NewKVBucket(kv), nil
}

func (b *KVBucket) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (b *KVBucket) Put(ctx context.Context, key string, value []byte) error {
	if _, err := b.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (b *KVBucket) DeletePrefix(ctx context.Context, prefix string) error {
	lister, err := b.kv.ListKeysFiltered(ctx, strings.TrimSuffix(prefix, ".")+".>")
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return fmt.Errorf("kv list %s: %w", prefix, err)
	}
	defer func() { _ = lister.Stop() }()

	var errs []error
	for key := range lister.Keys() {
		if err := b.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
