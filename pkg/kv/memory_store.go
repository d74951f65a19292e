package kv

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is the single-process fallback used when redis is unavailable.
type MemoryStore struct {
	cache *cache.Cache
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	x, found := s.cache.Get(key)
	if !found {
		return nil, ErrMiss
	}
	b := x.([]byte)
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b := make([]byte, len(value))
	copy(b, value)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.cache.Set(key, b, ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}
