// internal/site/service.go
//
// Site façade consumed by the rendering layer.
//
// Context
// -------
// The HTTP layer (and any template renderer behind it) talks to this
// package only.  It resolves the tenant for a host, and for that tenant
// answers the questions a page needs:
//
//   - Item     → Redirect, NotFound, RenderArticle (with related
//     articles), or RenderGuide for one slug.
//   - Listing  → merged, paginated, category-grouped feed.
//   - Popular  → popular articles.
//   - Page     → one static page.
//   - HasFeature → per-tenant feature switch.
//
// All reads go through content.Repository, so a warm snapshot answers
// every call without remote I/O.
package site

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/cache"
	"github.com/yanizio/tenantcms/internal/config"
	"github.com/yanizio/tenantcms/internal/content"
	"github.com/yanizio/tenantcms/internal/feed"
	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/publish"
	"github.com/yanizio/tenantcms/internal/routing"
	"github.com/yanizio/tenantcms/internal/tenant"
)

// Defaults for Options.
const (
	DefaultRelated = 4
	DefaultPerPage = 12
)

// Kind is the outcome of an item lookup.
type Kind int

const (
	KindNotFound Kind = iota
	KindRedirect
	KindRenderArticle
	KindRenderGuide
)

func (k Kind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindRenderArticle:
		return "article"
	case KindRenderGuide:
		return "guide"
	}
	return "not_found"
}

// Outcome answers an item lookup.  Fields beyond Kind are set per kind.
type Outcome struct {
	Kind      Kind
	Target    string // KindRedirect
	Permanent bool   // KindRedirect
	Article   *model.Article
	Related   []model.Article // KindRenderArticle
	Guide     *model.Guide
}

// Options configures a Service.
type Options struct {
	Related  int           // related articles per item; 0 → DefaultRelated
	PerPage  int           // listing page size; 0 → DefaultPerPage
	Shuffler feed.Shuffler // nil → feed.RandomShuffler
}

// Service is safe for concurrent use.
type Service struct {
	repo     *content.Repository
	resolver *tenant.Resolver
	opts     Options
}

// NewService wires the façade.
func NewService(repo *content.Repository, resolver *tenant.Resolver, opts Options) *Service {
	if opts.Related <= 0 {
		opts.Related = DefaultRelated
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.Shuffler == nil {
		opts.Shuffler = feed.RandomShuffler
	}
	return &Service{repo: repo, resolver: resolver, opts: opts}
}

// Tenant resolves the tenant for host.
func (s *Service) Tenant(ctx context.Context, host string) (*model.Tenant, error) {
	return s.resolver.Resolve(ctx, host)
}

// Ready resolves the default tenant once, warming the snapshot on the
// way.  A store with no active tenant returns its *config.ConfigurationError
// and the process must not serve.  Any other failure is logged and
// tolerated: reads fall back per request.
func (s *Service) Ready(ctx context.Context) error {
	def, err := s.resolver.Default(ctx)
	switch {
	case err == nil:
		zap.L().Info("default tenant", zap.String("id", def.ID), zap.String("domain", def.Domain))
		return nil
	case config.IsConfiguration(err):
		return err
	}
	zap.L().Warn("tenant check failed, serving through fallback", zap.Error(err))
	return nil
}

// Resolver returns the host resolver, for middleware.
func (s *Service) Resolver() *tenant.Resolver { return s.resolver }

// Item resolves slug for t.  Unpublished items are looked up too, since
// they may still redirect.
func (s *Service) Item(ctx context.Context, t *model.Tenant, slug string) (Outcome, error) {
	slug = strings.ToLower(strings.Trim(slug, "/ "))
	if slug == "" {
		return Outcome{Kind: KindNotFound}, nil
	}

	all := content.Filter{IncludeUnpublished: true}
	articles, err := s.repo.Articles(ctx, t, all)
	if err != nil {
		return Outcome{}, err
	}
	guides, err := s.repo.Guides(ctx, t, all)
	if err != nil {
		return Outcome{}, err
	}
	paths := pathsFor(guides)

	for i := range articles {
		a := &articles[i]
		if !strings.EqualFold(a.Slug, slug) {
			continue
		}
		out := fromState(publish.Resolve(&a.Item, paths))
		if out.Kind == KindRenderArticle {
			out.Article = a
			out.Related = feed.Related(a, published(articles), t.ID, s.opts.Related, s.opts.Shuffler)
		}
		return out, nil
	}
	for i := range guides {
		g := &guides[i]
		if !strings.EqualFold(g.Slug, slug) {
			continue
		}
		out := fromState(publish.Resolve(&g.Item, paths))
		if out.Kind == KindRenderArticle {
			out.Kind, out.Guide = KindRenderGuide, g
		}
		return out, nil
	}
	return Outcome{Kind: KindNotFound}, nil
}

// Listing returns page number of t's merged feed, grouped by assigned
// category.  perPage <= 0 uses the configured default.
func (s *Service) Listing(ctx context.Context, t *model.Tenant, number, perPage int) (feed.Listing, error) {
	if perPage <= 0 {
		perPage = s.opts.PerPage
	}
	articles, err := s.repo.Articles(ctx, t, content.Filter{})
	if err != nil {
		return feed.Listing{}, err
	}
	guides, err := s.repo.Guides(ctx, t, content.Filter{})
	if err != nil {
		return feed.Listing{}, err
	}
	cats, err := s.repo.Categories(ctx, t)
	if err != nil {
		return feed.Listing{}, err
	}
	return feed.Categorize(feed.Merge(articles, guides), cats, number, perPage), nil
}

// Popular returns up to limit popular articles of t.
func (s *Service) Popular(ctx context.Context, t *model.Tenant, limit int) ([]model.Article, error) {
	articles, err := s.repo.Articles(ctx, t, content.Filter{})
	if err != nil {
		return nil, err
	}
	return feed.Popular(articles, t.ID, limit), nil
}

// Page returns t's published page with slug, or nil.
func (s *Service) Page(ctx context.Context, t *model.Tenant, slug string) (*model.Page, error) {
	slug = strings.Trim(slug, "/ ")
	pages, err := s.repo.Pages(ctx, t, content.Filter{})
	if err != nil {
		return nil, err
	}
	for i := range pages {
		if strings.EqualFold(pages[i].Slug, slug) {
			return &pages[i], nil
		}
	}
	return nil, nil
}

// HasFeature reports whether the named feature is enabled for t.
func (s *Service) HasFeature(ctx context.Context, t *model.Tenant, name string) (bool, error) {
	feats, err := s.repo.Features(ctx)
	if err != nil {
		return false, err
	}
	for i := range feats {
		if strings.EqualFold(feats[i].Name, name) && feats[i].EnabledFor(t.ID) {
			return true, nil
		}
	}
	return false, nil
}

// Features returns the names of the features enabled for t.
func (s *Service) Features(ctx context.Context, t *model.Tenant) ([]string, error) {
	feats, err := s.repo.Features(ctx)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for i := range feats {
		if feats[i].EnabledFor(t.ID) {
			names = append(names, feats[i].Name)
		}
	}
	return names, nil
}

// Status describes the cached snapshot.
type Status struct {
	SnapshotAt time.Time // zero when no snapshot is cached
	Fresh      bool
	Entries    int // fast-path entries
}

// Status reports cache state without triggering a refresh.
func (s *Service) Status() Status {
	c := s.repo.Cache()
	st := Status{Entries: c.Len()}
	if e, ok := c.Peek(cache.SnapshotKey); ok {
		st.SnapshotAt = e.WrittenAt
		st.Fresh = e.Fresh(c.Now(), c.TTL())
	}
	return st
}

// Invalidate drops all cached content.
func (s *Service) Invalidate() { s.repo.Invalidate() }

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func fromState(o publish.Outcome) Outcome {
	switch o.State {
	case publish.Redirect:
		return Outcome{Kind: KindRedirect, Target: o.Target, Permanent: o.Permanent}
	case publish.Render:
		return Outcome{Kind: KindRenderArticle}
	}
	return Outcome{Kind: KindNotFound}
}

// pathsFor sends bare slugs naming one of guides to the guide path and
// everything else to the article path.
func pathsFor(guides []model.Guide) publish.PathFunc {
	set := make(map[string]bool, len(guides))
	for _, g := range guides {
		set[strings.ToLower(g.Slug)] = true
	}
	return func(slug string) string {
		if set[strings.ToLower(slug)] {
			return routing.GuidePath(slug)
		}
		return routing.ArticlePath(slug)
	}
}

func published(as []model.Article) []model.Article {
	out := make([]model.Article, 0, len(as))
	for _, a := range as {
		if a.Published {
			out = append(out, a)
		}
	}
	return out
}
