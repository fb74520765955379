// Package cache memoizes expensive string-keyed loads, such as embedding calls, in a bounded LRU.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for key on a cache miss.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// LoaderCache keeps up to size values and runs at most one load per key at a time.
// Failed loads are not cached.
type LoaderCache[V any] struct {
	entries  *lru.Cache[string, V]
	inflight singleflight.Group
}

// New creates a LoaderCache holding at most size entries.
func New[V any](size int) (*LoaderCache[V], error) {
	entries, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &LoaderCache[V]{entries: entries}, nil
}

// Get returns the cached value for key or loads it. Concurrent misses for the same key share one
// load and its ctx. hit reports whether the value was served from the cache.
func (c *LoaderCache[V]) Get(ctx context.Context, key string, load Loader[V]) (value V, hit bool, err error) {
	if v, ok := c.entries.Get(key); ok {
		return v, true, nil
	}

	res, err, _ := c.inflight.Do(key, func() (any, error) {
		v, loadErr := load(ctx, key)
		if loadErr != nil {
			return nil, loadErr
		}

		c.entries.Add(key, v)

		return v, nil
	})
	if err != nil {
		var zero V

		return zero, false, err
	}

	value, _ = res.(V)

	return value, false, nil
}

// Len returns the number of cached entries.
func (c *LoaderCache[V]) Len() int {
	return c.entries.Len()
}
