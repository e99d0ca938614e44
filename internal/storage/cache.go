package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore keeps recently used fingerprint lists in memory. Saves write
// through to the wrapped store before the cache is updated.
type CachedStore struct {
	Store
	cache *lru.Cache[string, []string]

	// gens counts saves per key. A miss only fills the cache when no save
	// for the key started or finished while the backend was being read.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewCachedStore wraps s with an LRU cache of the given size.
func NewCachedStore(s Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}
	return &CachedStore{Store: s, cache: cache, gens: make(map[string]uint64)}, nil
}

func (c *CachedStore) Load(ctx context.Context, key string) ([]string, error) {
	if fps, ok := c.cache.Get(key); ok {
		return slices.Clone(fps), nil
	}

	c.mu.Lock()
	gen := c.gens[key]
	c.mu.Unlock()

	fps, err := c.Store.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[key] == gen {
		c.cache.ContainsOrAdd(key, slices.Clone(fps))
	}
	c.mu.Unlock()
	return fps, nil
}

func (c *CachedStore) Save(ctx context.Context, key string, fingerprints []string) error {
	c.bump(key)
	err := c.Store.Save(ctx, key, fingerprints)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	if err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, slices.Clone(fingerprints))
	return nil
}

func (c *CachedStore) bump(key string) {
	c.mu.Lock()
	c.gens[key]++
	c.mu.Unlock()
}

// Len returns the number of cached projects.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
