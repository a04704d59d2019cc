package source

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores fetch results by Query.Key.
type Cache interface {
	Get(key string) (*Result, bool)
	Add(key string, r *Result)
}

type lruCache struct {
	lru *expirable.LRU[string, *Result]
}

// NewLRUCache returns a size-bounded cache whose entries expire after ttl.
func NewLRUCache(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 256
	}
	return &lruCache{lru: expirable.NewLRU[string, *Result](size, nil, ttl)}
}

func (c *lruCache) Get(key string) (*Result, bool) { return c.lru.Get(key) }

func (c *lruCache) Add(key string, r *Result) { c.lru.Add(key, r) }

type cached struct {
	src   ConsumptionSource
	cache Cache
}

// Cached wraps src so successful results are served from cache until they
// expire. Errors are never cached.
func Cached(src ConsumptionSource, cache Cache) ConsumptionSource {
	if cache == nil {
		return src
	}
	return &cached{src: src, cache: cache}
}

func (c *cached) Fetch(ctx context.Context, q Query) (*Result, error) {
	key := q.Key()
	if r, ok := c.cache.Get(key); ok {
		return r, nil
	}
	r, err := c.src.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, r)
	return r, nil
}
