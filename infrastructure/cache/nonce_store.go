package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"social-publisher/domain/repository"

	"github.com/redis/go-redis/v9"
)

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// NonceStore remembers one-time values in Redis. Keys are hashed so raw authorization codes
// never reach the cache.
type NonceStore struct {
	client setNXer
	prefix string
	ttl    time.Duration
}

func NewNonceStore(client *redis.Client, ttl time.Duration) repository.INonceStore {
	return newNonceStore(client, ttl)
}

func newNonceStore(client setNXer, ttl time.Duration) *NonceStore {
	return &NonceStore{client: client, prefix: "publisher:nonce:", ttl: ttl}
}

func (s *NonceStore) Consume(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), time.Now().UTC().Unix(), s.ttl).Result()
}

func (s *NonceStore) key(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return s.prefix + hex.EncodeToString(sum[:])
}
