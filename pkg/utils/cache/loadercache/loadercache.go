// Package loadercache provides a cache that fills itself through a loader
// function. Entries expire after a configurable duration.
package loadercache

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/bikerace-engine/log"
	"github.com/mpapenbr/bikerace-engine/pkg/utils/cache"
)

type (
	Option[K comparable, V any]     func(*loaderCache[K, V])
	LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (*V, error)

	entry[V any] struct {
		data    *V
		expires time.Time
	}
	loaderCache[K comparable, V any] struct {
		mu         sync.Mutex
		entries    map[K]entry[V]
		expiration time.Duration
		loader     LoaderFunc[K, V]
		now        func() time.Time
		log        *log.Logger
	}
)

// WithExpiration sets the lifetime of an entry. A value <= 0 keeps entries forever.
func WithExpiration[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *loaderCache[K, V]) {
		c.expiration = d
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *loaderCache[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](l *log.Logger) Option[K, V] {
	return func(c *loaderCache[K, V]) {
		c.log = l
	}
}

func withClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *loaderCache[K, V]) {
		c.now = now
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &loaderCache[K, V]{
		entries:    make(map[K]entry[V]),
		expiration: 5 * time.Minute,
		now:        time.Now,
		log:        log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key, loading it on a miss or after expiry.
// The lock is held while loading so a key is never loaded twice concurrently.
func (c *loaderCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if e.expires.IsZero() || c.now().Before(e.expires) {
			return e.data, nil
		}
		delete(c.entries, key)
	}
	return c.load(ctx, key)
}

func (c *loaderCache[K, V]) load(ctx context.Context, key K) (*V, error) {
	if c.loader == nil {
		return nil, cache.ErrCacheMiss
	}
	v, err := c.loader(ctx, key)
	if err != nil {
		c.log.Debug("error loading entry", log.Any("key", key), log.ErrorField(err))
		return nil, err
	}
	c.log.Debug("loaded entry", log.Any("key", key))
	e := entry[V]{data: v}
	if c.expiration > 0 {
		e.expires = c.now().Add(c.expiration)
	}
	c.entries[key] = e
	return v, nil
}

func (c *loaderCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.log.Debug("invalidated entry", log.Any("key", key), log.Int("remaining", len(c.entries)))
}

func (c *loaderCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
