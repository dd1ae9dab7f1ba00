package content

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/cache"
	"github.com/yanizio/tenantcms/internal/fallback"
	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/record"
)

// Filter narrows a getter's result.
type Filter struct {
	Limit              int  // 0 means no limit
	IncludeUnpublished bool // lookups need unpublished rows for redirects
}

// Fast-path key kinds.
const (
	kindTenants    = "tenants"
	kindArticles   = "articles"
	kindGuides     = "guides"
	kindPages      = "pages"
	kindCategories = "categories"
	kindFeatures   = "features"
)

var fastPathKinds = []string{kindTenants, kindArticles, kindGuides, kindPages, kindCategories, kindFeatures}

// cached returns a fresh fast-path value without touching the snapshot.
func cached[T any](r *Repository, key string) (T, bool) {
	return cache.Load[T](r.cache, key)
}

// Tenants returns every tenant row.  On snapshot failure only active
// tenants are fetched, which is all the resolver needs.
func (r *Repository) Tenants(ctx context.Context) ([]model.Tenant, error) {
	key := cache.Key(kindTenants, "active")
	if ts, ok := cached[[]model.Tenant](r, key); ok {
		return ts, nil
	}
	if snap, err := r.Snapshot(ctx); err == nil {
		return snap.Tenants, nil
	} else {
		zap.L().Warn("snapshot unavailable, resolving tenants directly", zap.Error(err))
	}
	return cache.Fetch(ctx, r.cache, key, func(ctx context.Context) ([]model.Tenant, error) {
		recs, err := r.engine.Fetch(ctx, record.TableTenants, nil, fallback.Constraints{ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		return model.MapAll(recs, model.TenantFrom), nil
	})
}

// Articles returns the tenant's articles in fetch order.
func (r *Repository) Articles(ctx context.Context, t *model.Tenant, f Filter) ([]model.Article, error) {
	all, err := scoped(ctx, r, t, kindArticles, record.TableArticles, model.ArticleFrom,
		func(s *model.Snapshot) []model.Article { return s.Articles[t.ID] })
	if err != nil {
		return nil, err
	}
	return apply(all, f, func(a model.Article) bool { return a.Published }), nil
}

// Guides returns the tenant's guides in fetch order.
func (r *Repository) Guides(ctx context.Context, t *model.Tenant, f Filter) ([]model.Guide, error) {
	all, err := scoped(ctx, r, t, kindGuides, record.TableGuides, model.GuideFrom,
		func(s *model.Snapshot) []model.Guide { return s.Guides[t.ID] })
	if err != nil {
		return nil, err
	}
	return apply(all, f, func(g model.Guide) bool { return g.Published }), nil
}

// Pages returns the tenant's static pages.  Failures degrade to an empty
// list.
func (r *Repository) Pages(ctx context.Context, t *model.Tenant, f Filter) ([]model.Page, error) {
	all, err := scoped(ctx, r, t, kindPages, record.TablePages, model.PageFrom,
		func(s *model.Snapshot) []model.Page { return s.Pages[t.ID] })
	if err != nil {
		zap.L().Warn("pages unavailable", zap.String("tenant", t.ID), zap.Error(err))
		return []model.Page{}, nil
	}
	return apply(all, f, func(p model.Page) bool { return p.Published }), nil
}

// Categories returns the categories assigned to the tenant, in priority
// order.  Failures degrade to an empty list.
func (r *Repository) Categories(ctx context.Context, t *model.Tenant) ([]model.Category, error) {
	all, err := scoped(ctx, r, t, kindCategories, record.TableCategories, model.CategoryFrom,
		func(s *model.Snapshot) []model.Category { return s.Categories[t.ID] })
	if err != nil {
		zap.L().Warn("categories unavailable", zap.String("tenant", t.ID), zap.Error(err))
		return []model.Category{}, nil
	}
	out := append([]model.Category(nil), all...)
	model.SortCategories(out)
	return out, nil
}

// Features returns every feature.  Failures degrade to an empty list.
func (r *Repository) Features(ctx context.Context) ([]model.Feature, error) {
	key := cache.Key(kindFeatures, "all")
	if feats, ok := cached[[]model.Feature](r, key); ok {
		return feats, nil
	}
	if snap, err := r.Snapshot(ctx); err == nil {
		return snap.Features, nil
	}
	feats, err := cache.Fetch(ctx, r.cache, key, func(ctx context.Context) ([]model.Feature, error) {
		recs, err := r.engine.Fetch(ctx, record.TableFeatures, nil, fallback.Constraints{})
		if err != nil {
			return nil, err
		}
		return model.MapAll(recs, model.FeatureFrom), nil
	})
	if err != nil {
		zap.L().Warn("features unavailable", zap.Error(err))
		return []model.Feature{}, nil
	}
	return feats, nil
}

// scoped runs the shared read path for one tenant and table.
func scoped[T any](
	ctx context.Context,
	r *Repository,
	t *model.Tenant,
	kind string,
	table record.Table,
	mapFn func(record.Record) T,
	fromSnap func(*model.Snapshot) []T,
) ([]T, error) {
	key := cache.Key(kind, t.ID)
	if vs, ok := cached[[]T](r, key); ok {
		return vs, nil
	}
	snap, err := r.Snapshot(ctx)
	if err == nil {
		return fromSnap(snap), nil
	}
	zap.L().Warn("snapshot unavailable, using fallback engine",
		zap.String("table", string(table)), zap.String("tenant", t.ID), zap.Error(err))

	return cache.Fetch(ctx, r.cache, key, func(ctx context.Context) ([]T, error) {
		recs, err := r.engine.Fetch(ctx, table, t, fallback.Constraints{})
		if err != nil {
			return nil, err
		}
		return model.MapAll(recs, mapFn), nil
	})
}

// apply filters to published rows unless told otherwise, then limits.
func apply[T any](all []T, f Filter, published func(T) bool) []T {
	out := make([]T, 0, len(all))
	for _, v := range all {
		if !f.IncludeUnpublished && !published(v) {
			continue
		}
		out = append(out, v)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
