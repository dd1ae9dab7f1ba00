// internal/content/repository.go
//
// Cached, tenant-scoped content access.
//
// Context
// -------
// Every getter follows the same read path:
//
//  1. Fresh snapshot in the cache → filter in memory, no remote calls.
//  2. No fresh snapshot → one coalesced bulk refresh (all tables, one
//     logical unit) → filter.
//  3. Bulk refresh failed → fresh per-tenant fast-path entry, else the
//     fallback engine for just this tenant and table, mapped to typed
//     structs and stored as a fast-path entry.
//
// A fresh fast-path entry is served before any refresh is attempted, and
// a failed refresh is not retried for RetryAfter, so reads during an
// outage never wait on a bulk fetch that is known to be failing.  A
// successful refresh drops the content fast-path entries it supersedes.
//
// The snapshot is swapped atomically once every table is fetched, so no
// reader can see tenants from one refresh mixed with articles from
// another.
//
// Notes
// -----
//   - Snapshots hold unpublished rows too.  An unpublished item can still
//     carry a redirect, so listing getters filter, lookups do not.
//   - Categories, pages, and features are optional enrichments: their
//     fetch failures degrade to empty lists.  Articles, guides, and
//     tenants propagate errors.
package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/tenantcms/internal/cache"
	"github.com/yanizio/tenantcms/internal/fallback"
	"github.com/yanizio/tenantcms/internal/metrics"
	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/record"
)

// Defaults for Options.
const (
	DefaultRefreshTimeout = 60 * time.Second
	DefaultRetryAfter     = 30 * time.Second
)

var tracer = otel.Tracer("github.com/yanizio/tenantcms/internal/content")

// Mirror persists snapshots outside the process so a cold start can adopt
// a recent one instead of re-fetching everything.
type Mirror interface {
	// Load returns the stored snapshot and its write time, or a nil
	// snapshot when none is stored.
	Load(ctx context.Context) (*model.Snapshot, time.Time, error)
	Save(ctx context.Context, snap *model.Snapshot, writtenAt time.Time) error
}

// Options configures a Repository.
type Options struct {
	Mirror         Mirror        // optional
	RefreshTimeout time.Duration // zero means DefaultRefreshTimeout
	RetryAfter     time.Duration // pause after a failed refresh; zero means DefaultRetryAfter
}

// Repository serves typed content for tenants.  Safe for concurrent use.
type Repository struct {
	cache   *cache.Cache
	engine  *fallback.Engine
	store   record.Store
	mirror  Mirror
	timeout time.Duration
	backoff time.Duration

	mu       sync.Mutex
	failedAt time.Time
	failErr  error
}

// NewRepository wires the cache, the fallback engine, and the store used
// for bulk refreshes.
func NewRepository(c *cache.Cache, engine *fallback.Engine, store record.Store, opts Options) *Repository {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = DefaultRetryAfter
	}
	return &Repository{
		cache:   c,
		engine:  engine,
		store:   store,
		mirror:  opts.Mirror,
		timeout: opts.RefreshTimeout,
		backoff: opts.RetryAfter,
	}
}

// Cache exposes the underlying cache for fast-path entries owned by other
// packages (resolved hosts).
func (r *Repository) Cache() *cache.Cache { return r.cache }

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// Snapshot returns the fresh snapshot, refreshing it when absent or stale.
// Concurrent callers share one refresh.
func (r *Repository) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if s, ok := cache.Load[*model.Snapshot](r.cache, cache.SnapshotKey); ok {
		return s, nil
	}
	if err := r.recentFailure(); err != nil {
		return nil, err
	}
	v, err := r.cache.Do(ctx, cache.SnapshotKey, func(ctx context.Context) (any, error) {
		if s, ok := cache.Load[*model.Snapshot](r.cache, cache.SnapshotKey); ok {
			return s, nil
		}
		if s, ok := r.fromMirror(ctx); ok {
			return s, nil
		}
		s, err := r.Refresh(ctx)
		r.noteRefresh(err)
		return s, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Snapshot), nil
}

// Refresh performs a bulk fetch of every table and publishes the result as
// the new snapshot.  The previous snapshot stays in place on failure.
func (r *Repository) Refresh(ctx context.Context) (*model.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "content.refresh")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := r.cache.Now()
	var (
		tenants, articles, guides []record.Record
		pages, categories, feats  []record.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(r.bulk(gctx, record.TableTenants, &tenants, true))
	g.Go(r.bulk(gctx, record.TableArticles, &articles, true))
	g.Go(r.bulk(gctx, record.TableGuides, &guides, true))
	g.Go(r.bulk(gctx, record.TablePages, &pages, false))
	g.Go(r.bulk(gctx, record.TableCategories, &categories, false))
	g.Go(r.bulk(gctx, record.TableFeatures, &feats, false))
	if err := g.Wait(); err != nil {
		metrics.SnapshotRefreshErrors.Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("snapshot refresh: %w", err)
	}

	snap, err := model.NewSnapshot(
		model.MapAll(tenants, model.TenantFrom),
		model.MapAll(articles, model.ArticleFrom),
		model.MapAll(guides, model.GuideFrom),
		model.MapAll(pages, model.PageFrom),
		model.MapAll(categories, model.CategoryFrom),
		model.MapAll(feats, model.FeatureFrom),
		started,
	)
	if err != nil {
		// Conflicting guides were dropped; the snapshot is still served.
		zap.L().Error("snapshot slug conflicts", zap.Error(err))
	}

	r.cache.PutAt(cache.SnapshotKey, snap, started)
	for _, kind := range fastPathKinds {
		r.cache.InvalidatePrefix(kind + ":")
	}
	metrics.SnapshotRefreshTotal.Inc()
	metrics.SnapshotAge.Set(float64(started.Unix()))
	zap.L().Info("snapshot refreshed",
		zap.Int("tenants", len(snap.Tenants)),
		zap.Int("articles", len(articles)),
		zap.Int("guides", len(guides)),
		zap.Duration("took", r.cache.Now().Sub(started)))

	if r.mirror != nil {
		if err := r.mirror.Save(context.WithoutCancel(ctx), snap, started); err != nil {
			zap.L().Warn("snapshot mirror save failed", zap.Error(err))
		}
	}
	return snap, nil
}

// bulk returns an errgroup func that reads all of table into dst.
func (r *Repository) bulk(ctx context.Context, table record.Table, dst *[]record.Record, critical bool) func() error {
	return func() error {
		recs, err := r.store.Query(ctx, table, record.Query{})
		if err == nil {
			*dst = recs
			return nil
		}
		if !critical && record.IsPermission(err) {
			zap.L().Warn("bulk fetch: table not readable, using empty set",
				zap.String("table", string(table)), zap.Error(err))
			return nil
		}
		return fmt.Errorf("bulk %s: %w", table, err)
	}
}

func (r *Repository) fromMirror(ctx context.Context) (*model.Snapshot, bool) {
	if r.mirror == nil {
		return nil, false
	}
	snap, at, err := r.mirror.Load(ctx)
	if err != nil {
		zap.L().Warn("snapshot mirror load failed", zap.Error(err))
		return nil, false
	}
	if snap == nil || !(cache.Entry[any]{WrittenAt: at}).Fresh(r.cache.Now(), r.cache.TTL()) {
		return nil, false
	}
	r.cache.PutAt(cache.SnapshotKey, snap, at)
	zap.L().Info("snapshot adopted from mirror", zap.Time("written_at", at))
	return snap, true
}

// recentFailure returns the last refresh error while it is younger than
// the retry pause.
func (r *Repository) recentFailure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil && r.cache.Now().Sub(r.failedAt) < r.backoff {
		return r.failErr
	}
	return nil
}

func (r *Repository) noteRefresh(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		r.failErr = nil
		return
	}
	r.failErr, r.failedAt = err, r.cache.Now()
}

// Invalidate drops every cached snapshot and fast-path entry and forgets
// any refresh failure, so the next read retries at once.
func (r *Repository) Invalidate() {
	r.noteRefresh(nil)
	r.cache.InvalidateAll()
}
