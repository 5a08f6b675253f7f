// Package fetchcache maps resource keys (API URLs) to providers, bounded by
// an LRU policy. Dropping an entry for any reason, eviction included,
// closes its provider and notifies invalidation listeners with the key.
//
// Like provider.Provider, a Cache is confined to the coordination loop.
package fetchcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/coord"
	"github.com/altinukshini/gha-watch/internal/event"
	"github.com/altinukshini/gha-watch/internal/provider"
)

const DefaultCapacity = 200

// Factory builds the fetch for a key the cache has no live entry for.
type Factory[T any] func(key string) provider.FetchFunc[T]

type Cache[T any] struct {
	name    string
	pool    *coord.Pool
	factory Factory[T]
	opts    []provider.Option[T]
	log     *zap.Logger

	entries     *lru.Cache[string, *provider.Provider[T]]
	invalidated event.Dispatcher[string]
	closed      bool
}

type Config struct {
	// Name labels the cache in logs.
	Name     string
	Capacity int
	Logger   *zap.Logger
}

func New[T any](pool *coord.Pool, cfg Config, factory Factory[T], opts ...provider.Option[T]) (*Cache[T], error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache[T]{
		name:    cfg.Name,
		pool:    pool,
		factory: factory,
		log:     log.Named("fetchcache").With(zap.String("cache", cfg.Name)),
	}
	c.opts = append([]provider.Option[T]{provider.WithLogger[T](c.log)}, opts...)

	entries, err := lru.NewWithEvict(cfg.Capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create %s cache: %w", cfg.Name, err)
	}
	c.entries = entries
	return c, nil
}

func (c *Cache[T]) onEvict(key string, p *provider.Provider[T]) {
	p.Close()
	c.log.Debug("entry invalidated", zap.String("key", key))
	c.invalidated.Publish(key)
}

// Get returns the live provider for key, creating it when absent. Inserting
// past capacity evicts the least recently used entry.
func (c *Cache[T]) Get(key string) *provider.Provider[T] {
	if p, ok := c.entries.Get(key); ok {
		return p
	}
	p := provider.New(c.pool, key, c.factory(key), c.opts...)
	if c.closed {
		p.Close()
		return p
	}
	c.entries.Add(key, p)
	return p
}

// Peek returns the live provider for key without touching its recency.
func (c *Cache[T]) Peek(key string) (*provider.Provider[T], bool) {
	return c.entries.Peek(key)
}

// Reload drops the memoized value of key's provider, if one is live.
func (c *Cache[T]) Reload(key string) {
	if p, ok := c.entries.Peek(key); ok {
		p.Reload()
	}
}

// Invalidate removes key. Listeners hear about it only if it was present.
func (c *Cache[T]) Invalidate(key string) bool {
	return c.entries.Remove(key)
}

// InvalidateAll removes every entry, notifying listeners once per key.
func (c *Cache[T]) InvalidateAll() {
	c.entries.Purge()
}

func (c *Cache[T]) AddInvalidationListener(fn func(key string)) (remove func()) {
	return c.invalidated.Subscribe(fn)
}

func (c *Cache[T]) Len() int {
	return c.entries.Len()
}

// Close invalidates every entry. Providers handed out afterwards are
// already closed.
func (c *Cache[T]) Close() {
	if c.closed {
		return
	}
	c.InvalidateAll()
	c.closed = true
	c.invalidated.Clear()
}
