// internal/cache/cache.go
//
// Process-wide TTL cache for tenant content.
//
// Context
// -------
// One reserved key (`SnapshotKey`) holds the bulk content snapshot in an
// atomic slot so it can never be pushed out by LRU pressure.  Every other
// key is a fast-path entry ("host:<name>", "articles:<tenant>", ...) kept
// in a bounded LRU.  Entries carry their write time; a read only returns
// an entry younger than the configured TTL.  Stale entries are never
// served, the caller refetches instead.
//
// Misses that need remote I/O go through `Do`, which coalesces concurrent
// callers for the same key onto one in-flight call (singleflight).  Fresh
// reads take no locks beyond the LRU's own mutex and never wait on I/O.
//
// Notes
// -----
//   - TTL is set once per deployment.  Hours, not minutes, is the norm.
//   - The Clock is injectable so tests can step time across the TTL edge.
package cache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/tenantcms/internal/metrics"
)

// Static defaults.  Overridden by config.
const (
	DefaultTTL        = 12 * time.Hour
	DefaultMaxEntries = 1024
	SweepInterval     = 5 * time.Minute
)

// SnapshotKey is reserved for the bulk content snapshot.
const SnapshotKey = "snapshot"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Entry wraps a cached value with the time it was written.
type Entry[T any] struct {
	Value     T
	WrittenAt time.Time
}

// Fresh reports whether now - WrittenAt < ttl.
func (e Entry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.WrittenAt) < ttl
}

// Options configures a Cache.  Zero fields take the package defaults.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	Clock      Clock
}

// Cache is safe for concurrent use.  Construct with New.
type Cache struct {
	ttl   time.Duration
	clock Clock

	snap    atomic.Pointer[Entry[any]]
	entries *lru.Cache[string, Entry[any]]
	sfg     singleflight.Group
}

// New returns an empty Cache.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	entries, err := lru.New[string, Entry[any]](opts.MaxEntries)
	if err != nil {
		// Only returned for a non-positive size, which is ruled out above.
		panic("cache: " + err.Error())
	}
	return &Cache{ttl: opts.TTL, clock: opts.Clock, entries: entries}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time { return c.clock.Now() }

// Get returns the value under key when a fresh entry exists.
func (c *Cache) Get(key string) (any, bool) {
	ent, ok := c.lookup(key)
	if !ok || !ent.Fresh(c.clock.Now(), c.ttl) {
		metrics.CacheMisses.WithLabelValues(kindOf(key)).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(kindOf(key)).Inc()
	return ent.Value, true
}

// Peek returns the entry under key regardless of freshness.
func (c *Cache) Peek(key string) (Entry[any], bool) { return c.lookup(key) }

// Put stores value under key, stamped with the current time.
func (c *Cache) Put(key string, value any) {
	c.PutAt(key, value, c.clock.Now())
}

// PutAt stores value with an explicit write time.  Used when adopting an
// entry persisted elsewhere, whose age must be preserved.
func (c *Cache) PutAt(key string, value any, writtenAt time.Time) {
	ent := Entry[any]{Value: value, WrittenAt: writtenAt}
	if key == SnapshotKey {
		c.snap.Store(&ent)
		return
	}
	c.entries.Add(key, ent)
}

// Invalidate drops key.
func (c *Cache) Invalidate(key string) {
	if key == SnapshotKey {
		c.snap.Store(nil)
		return
	}
	c.entries.Remove(key)
}

// InvalidateAll drops the snapshot and every fast-path entry.
func (c *Cache) InvalidateAll() {
	c.snap.Store(nil)
	c.entries.Purge()
}

// InvalidatePrefix drops every fast-path entry whose key starts with
// prefix and returns how many were dropped.  The snapshot is untouched.
func (c *Cache) InvalidatePrefix(prefix string) int {
	n := 0
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) && c.entries.Remove(k) {
			n++
		}
	}
	return n
}

// Len reports the number of fast-path entries (the snapshot excluded).
func (c *Cache) Len() int { return c.entries.Len() }

// Do runs fn at most once at a time per key.  Callers arriving while a
// call is in flight wait for its result instead of starting their own.
// fn runs detached from the first caller's cancellation so one abandoned
// request cannot fail the refresh for everyone waiting on it.
func (c *Cache) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.sfg.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Shared {
			metrics.CoalescedWaits.Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(key string) (Entry[any], bool) {
	if key == SnapshotKey {
		p := c.snap.Load()
		if p == nil {
			return Entry[any]{}, false
		}
		return *p, true
	}
	return c.entries.Peek(key)
}

// -----------------------------------------------------------------------------
// Typed helpers
// -----------------------------------------------------------------------------

// Load returns the fresh value under key as T.
func Load[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Fetch returns the fresh value under key, or runs fn through Do, stores
// the result, and returns it.  Errors are not cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := Load[T](c, key); ok {
		return v, nil
	}
	v, err := c.Do(ctx, key, func(ctx context.Context) (any, error) {
		// Another caller may have filled the key while we queued.
		if v, ok := Load[T](c, key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Key joins parts with ":".
func Key(parts ...string) string { return strings.Join(parts, ":") }

func kindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i != -1 {
		return key[:i]
	}
	return key
}
