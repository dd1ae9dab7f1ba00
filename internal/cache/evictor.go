// evictor.go houses the sweep loop for Cache.  Every interval it scans the
// fast-path entries and removes those older than the TTL.  The LRU bound
// already caps memory, so the sweep only keeps dead entries from sitting
// in the LRU until pressure pushes them out.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/metrics"
)

// StartEvictor runs Sweep every interval until ctx is cancelled.
func (c *Cache) StartEvictor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := c.Sweep(); n > 0 {
					zap.L().Debug("cache sweep", zap.Int("evicted", n))
				}
			}
		}
	}()
}

// Sweep removes expired fast-path entries and returns how many it removed.
func (c *Cache) Sweep() int {
	now := c.clock.Now()
	var n int
	for _, k := range c.entries.Keys() {
		ent, ok := c.entries.Peek(k)
		if !ok || ent.Fresh(now, c.ttl) {
			continue
		}
		c.entries.Remove(k)
		metrics.CacheEvictTotal.Inc()
		n++
	}
	return n
}
