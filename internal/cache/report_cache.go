// Package cache provides in-memory caching of computed reports.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/yourusername/tradestats/internal/metrics"
)

// Key identifies a report: the dataset it was computed from and a
// fingerprint of the options it was computed with.
type Key struct {
	DatasetID uuid.UUID
	Options   string
}

// String returns string representation of cache key
func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.DatasetID, k.Options)
}

// ReportCache caches reports by Key. A TTL of zero disables expiry.
type ReportCache[V any] struct {
	cache     *gocache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewReportCache creates a new report cache
func NewReportCache[V any](ttl time.Duration, maxSize int) *ReportCache[V] {
	expiration := ttl
	cleanup := ttl * 2
	if ttl <= 0 {
		expiration = gocache.NoExpiration
		cleanup = 0
	}
	return &ReportCache[V]{
		cache:   gocache.New(expiration, cleanup),
		ttl:     expiration,
		maxSize: maxSize,
	}
}

// Get retrieves a cached report
func (rc *ReportCache[V]) Get(key Key) (V, bool) {
	if item, found := rc.cache.Get(key.String()); found {
		if v, ok := item.(V); ok {
			rc.hitCount.Add(1)
			metrics.RecordCacheHit()
			return v, true
		}
	}
	rc.missCount.Add(1)
	var zero V
	return zero, false
}

// Set stores a report
func (rc *ReportCache[V]) Set(key Key, v V) {
	if rc.maxSize > 0 && rc.cache.ItemCount() >= rc.maxSize {
		rc.cache.DeleteExpired()
		if rc.cache.ItemCount() >= rc.maxSize {
			rc.cache.Flush()
		}
	}
	rc.cache.Set(key.String(), v, rc.ttl)
}

// Clear flushes the entire cache
func (rc *ReportCache[V]) Clear() {
	rc.cache.Flush()
	rc.hitCount.Store(0)
	rc.missCount.Store(0)
}

// Stats returns cache statistics
func (rc *ReportCache[V]) Stats() (hits, misses uint64, ratio float64) {
	hits = rc.hitCount.Load()
	misses = rc.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (rc *ReportCache[V]) ItemCount() int {
	return rc.cache.ItemCount()
}
