// Package cache holds process-wide snapshots of catalog collections in front
// of the backing store.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tresde_cache_hits_total",
			Help: "Catalog reads answered from a snapshot",
		},
		[]string{"collection"},
	)
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tresde_cache_misses_total",
			Help: "Catalog reads that went to the backing store",
		},
		[]string{"collection"},
	)
	cacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tresde_cache_invalidations_total",
			Help: "Snapshots dropped after a write",
		},
		[]string{"collection"},
	)
)

// Snapshot is an ordered copy of one collection. Callers must treat Items as
// read-only: the same slice is handed to every reader until it expires.
type Snapshot[T any] struct {
	Items      []T
	CapturedAt time.Time
}

// Collection caches one collection for TTL. Concurrent misses may each fetch
// and the last one to finish wins; the snapshot pointer is swapped
// atomically, so readers never observe a partial snapshot.
type Collection[T any] struct {
	name  string
	ttl   time.Duration
	fetch func(context.Context) ([]T, error)
	now   func() time.Time
	snap  atomic.Pointer[Snapshot[T]]
}

// New returns an empty cache. now may be nil to use the wall clock.
func New[T any](name string, ttl time.Duration, fetch func(context.Context) ([]T, error), now func() time.Time) *Collection[T] {
	if now == nil {
		now = time.Now
	}
	return &Collection[T]{name: name, ttl: ttl, fetch: fetch, now: now}
}

// Read returns the current snapshot while it is younger than the TTL and
// otherwise fetches a new one. Fetch errors are returned without touching the
// cache.
func (c *Collection[T]) Read(ctx context.Context) (*Snapshot[T], error) {
	if snap := c.snap.Load(); snap != nil && c.now().Sub(snap.CapturedAt) < c.ttl {
		cacheHits.WithLabelValues(c.name).Inc()
		return snap, nil
	}

	cacheMisses.WithLabelValues(c.name).Inc()
	items, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	snap := &Snapshot[T]{Items: items, CapturedAt: c.now()}
	c.snap.Store(snap)
	return snap, nil
}

// Invalidate drops the snapshot so the next Read fetches.
func (c *Collection[T]) Invalidate() {
	c.snap.Store(nil)
	cacheInvalidations.WithLabelValues(c.name).Inc()
}

func (c *Collection[T]) Name() string {
	return c.name
}
