package nominatim

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Concurrent
// lookups for the same postal code share a single upstream call.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[string, domain.Coordinate]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache[string, domain.Coordinate](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Resolve(ctx context.Context, postalCode string) (domain.Coordinate, error) {
	key := domain.NormalizePostalCode(postalCode)
	if coord, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("geocode", "hit").Inc()
		return coord, nil
	}
	c.metrics.CacheLookups.WithLabelValues("geocode", "miss").Inc()

	// The shared lookup outlives any single caller; each caller still stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		coord, err := c.inner.Resolve(shared, key)
		if err != nil {
			return coord, err
		}
		// Only successes are cached so "not found" and transport failures can be retried.
		c.cache.put(key, coord)
		return coord, nil
	})

	select {
	case <-ctx.Done():
		return domain.Coordinate{}, fmt.Errorf("geocode %s: %w: %w", key, domain.ErrTransientFetch, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Coordinate{}, res.Err
		}
		return res.Val.(domain.Coordinate), nil
	}
}

// lruCache is a mutex-guarded LRU keyed by K. The list front holds the most
// recently used entry.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	items      map[K]*list.Element
}

type lruItem[K comparable, V any] struct {
	key   K
	value V
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruItem[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruItem[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&lruItem[K, V]{key: key, value: value})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruItem[K, V]).key)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
