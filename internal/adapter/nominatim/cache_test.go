package nominatim

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  atomic.Int32
	result domain.Coordinate
	err    error
	delay  time.Duration
}

func (m *countingGeocoder) Resolve(_ context.Context, _ string) (domain.Coordinate, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.result, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.Coordinate{Lat: -23.56, Lon: -46.65}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	c1, err := cached.Resolve(context.Background(), "01310-100")
	require.NoError(t, err)
	c2, err := cached.Resolve(context.Background(), " 01310-100 ")
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, int32(1), inner.calls.Load(), "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("geocode", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("geocode", "miss")))
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: domain.Coordinate{Lat: -22.9, Lon: -43.2}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.Resolve(context.Background(), "01310-100")
	_, _ = cached.Resolve(context.Background(), "20040-002")

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedGeocoder_ErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{err: domain.ErrNotFound}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Resolve(context.Background(), "99999-999")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cached.Resolve(context.Background(), "99999-999")
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 0, cached.cache.len())
}

func TestCachedGeocoder_ConcurrentLookupsShareCall(t *testing.T) {
	inner := &countingGeocoder{result: domain.Coordinate{Lat: 1, Lon: 2}, delay: 50 * time.Millisecond}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord, err := cached.Resolve(context.Background(), "01310-100")
			assert.NoError(t, err)
			assert.Equal(t, domain.Coordinate{Lat: 1, Lon: 2}, coord)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}

// blockingGeocoder holds every lookup until release is closed.
type blockingGeocoder struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	ctxErr  atomic.Value
}

func (m *blockingGeocoder) Resolve(ctx context.Context, _ string) (domain.Coordinate, error) {
	if m.calls.Add(1) == 1 {
		close(m.started)
	}
	<-m.release
	if err := ctx.Err(); err != nil {
		m.ctxErr.Store(err)
		return domain.Coordinate{}, err
	}
	return domain.Coordinate{Lat: -23.56, Lon: -46.65}, nil
}

func TestCachedGeocoder_CanceledCallerDoesNotFailOthers(t *testing.T) {
	inner := &blockingGeocoder{started: make(chan struct{}), release: make(chan struct{})}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cached.Resolve(ctxA, "01310-100")
		errA <- err
	}()
	<-inner.started

	type result struct {
		coord domain.Coordinate
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		coord, err := cached.Resolve(context.Background(), "01310-100")
		resB <- result{coord, err}
	}()
	time.Sleep(20 * time.Millisecond) // let B join the in-flight lookup

	cancelA()
	err := <-errA
	require.ErrorIs(t, err, domain.ErrTransientFetch)
	require.ErrorIs(t, err, context.Canceled)

	close(inner.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, domain.Coordinate{Lat: -23.56, Lon: -46.65}, b.coord)
	assert.Nil(t, inner.ctxErr.Load(), "shared lookup must not see the caller's cancellation")

	// The result was cached even though the first caller gave up.
	_, err = cached.Resolve(context.Background(), "01310-100")
	require.NoError(t, err)
	assert.LessOrEqual(t, inner.calls.Load(), int32(2))
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string, domain.Coordinate](3)

	c.put("a", domain.Coordinate{Lat: 1})
	c.put("b", domain.Coordinate{Lat: 2})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, result.Lat)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string, domain.Coordinate](2)

	c.put("a", domain.Coordinate{Lat: 1})
	c.put("b", domain.Coordinate{Lat: 2})
	c.put("c", domain.Coordinate{Lat: 3}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, result.Lat)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, result.Lat)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string, domain.Coordinate](2)

	c.put("a", domain.Coordinate{Lat: 1})
	c.put("b", domain.Coordinate{Lat: 2})

	c.get("a")

	// "b" is now least recently used.
	c.put("c", domain.Coordinate{Lat: 3})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string, domain.Coordinate](2)

	c.put("a", domain.Coordinate{Lat: 1})
	c.put("a", domain.Coordinate{Lat: 9})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 9.0, result.Lat)
	assert.Equal(t, 1, c.len())
}
