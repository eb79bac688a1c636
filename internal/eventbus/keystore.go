package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryKeyStore is an in-process idempotency KeyStore, grounded on the
// original adapter's _processed_messages set, for dev and tests.
type MemoryKeyStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryKeyStore creates an empty in-process KeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{seen: make(map[string]struct{})}
}

var _ KeyStore = (*MemoryKeyStore)(nil)

func (m *MemoryKeyStore) MarkProcessed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

// RedisKeyStore is the production idempotency KeyStore, backed by a single
// SETNX with a 24h TTL.
type RedisKeyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisKeyStore creates a Redis-backed KeyStore with the given TTL
// (defaulting to 24h, matching the production idempotency window).
func NewRedisKeyStore(client *redis.Client, prefix string, ttl time.Duration) *RedisKeyStore {
	if prefix == "" {
		prefix = "idempotency"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisKeyStore{client: client, prefix: prefix, ttl: ttl}
}

var _ KeyStore = (*RedisKeyStore)(nil)

func (r *RedisKeyStore) MarkProcessed(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+":"+key, "1", r.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
