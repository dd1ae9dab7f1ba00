package site

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenantcms/internal/cache"
	"github.com/yanizio/tenantcms/internal/config"
	"github.com/yanizio/tenantcms/internal/content"
	"github.com/yanizio/tenantcms/internal/fallback"
	"github.com/yanizio/tenantcms/internal/record"
	"github.com/yanizio/tenantcms/internal/store/fixture"
	"github.com/yanizio/tenantcms/internal/tenant"
)

func rec(id string, fields map[string]any) record.Record {
	return record.Record{ID: id, Fields: fields}
}

func site1(fields map[string]any) map[string]any {
	fields["Site"] = []any{"t1"}
	return fields
}

func newService(t *testing.T) *Service {
	t.Helper()
	st := fixture.New(nil)
	st.Put(record.TableTenants,
		rec("t1", map[string]any{"Name": "Tacos", "Domain": "tacos.test", "Active": true, "Order": 1.0}),
		rec("t2", map[string]any{"Name": "Bars", "Domain": "bars.test", "Active": true, "Order": 2.0}),
	)
	st.Put(record.TableArticles,
		rec("a1", site1(map[string]any{"Slug": "al-pastor", "Published": true, "Publish Date": "2024-03-01",
			"Popular": true, "Categories": []any{"c1"}})),
		rec("a2", site1(map[string]any{"Slug": "carnitas", "Published": true, "Publish Date": "2024-02-01",
			"Categories": []any{"c2"}})),
		rec("a3", site1(map[string]any{"Slug": "old-post", "Published": false,
			"Redirect Status": "redirect", "Redirect Target": "taco-tour"})),
		rec("a4", site1(map[string]any{"Slug": "draft", "Published": false})),
		rec("a5", map[string]any{"Site": []any{"t2"}, "Slug": "negroni", "Published": true}),
	)
	st.Put(record.TableGuides,
		rec("g1", site1(map[string]any{"Slug": "taco-tour", "Published": true, "Publish Date": "2024-02-15",
			"Categories": []any{"c1", "c9"}, "Businesses": []any{"b1", "b2"}})),
	)
	st.Put(record.TableCategories,
		rec("c1", site1(map[string]any{"Name": "Street", "Priority": 1.0})),
		rec("c2", site1(map[string]any{"Name": "Slow", "Priority": 2.0})),
	)
	st.Put(record.TablePages,
		rec("p1", site1(map[string]any{"Slug": "about", "Title": "About", "Published": true})),
		rec("p2", site1(map[string]any{"Slug": "secret", "Published": false})),
	)
	st.Put(record.TableFeatures,
		rec("f1", map[string]any{"Name": "newsletter", "Sites": []any{"t1"}}),
	)

	c := cache.New(cache.Options{TTL: time.Hour})
	repo := content.NewRepository(c, fallback.New(st, time.Second), st, content.Options{})
	res := tenant.NewResolver(tenant.Normalizer{}, repo, c)
	return NewService(repo, res, Options{Shuffler: rand.New(rand.NewPCG(1, 1))})
}

func TestItem(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	ten, err := s.Tenant(ctx, "www.tacos.test")
	require.NoError(t, err)
	require.Equal(t, "t1", ten.ID)

	out, err := s.Item(ctx, ten, "/al-pastor/")
	require.NoError(t, err)
	assert.Equal(t, KindRenderArticle, out.Kind)
	assert.Equal(t, "a1", out.Article.ID)
	require.Len(t, out.Related, 1)
	assert.Equal(t, "a2", out.Related[0].ID)

	out, err = s.Item(ctx, ten, "old-post")
	require.NoError(t, err)
	assert.Equal(t, KindRedirect, out.Kind)
	assert.Equal(t, "/guides/taco-tour", out.Target)
	assert.True(t, out.Permanent)

	out, err = s.Item(ctx, ten, "draft")
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, out.Kind)

	out, err = s.Item(ctx, ten, "taco-tour")
	require.NoError(t, err)
	assert.Equal(t, KindRenderGuide, out.Kind)
	assert.Len(t, out.Guide.Entries, 2)

	out, err = s.Item(ctx, ten, "negroni")
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, out.Kind, "other tenant's content")
}

func TestListing(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	ten, err := s.Tenant(ctx, "tacos.test")
	require.NoError(t, err)

	l, err := s.Listing(ctx, ten, 1, 0)
	require.NoError(t, err)
	require.False(t, l.Unified)
	require.Len(t, l.Groups, 2)
	assert.Equal(t, "Street", l.Groups[0].Category.Name)
	assert.Len(t, l.Groups[0].Page.Items, 2)
	assert.Equal(t, "Slow", l.Groups[1].Category.Name)
	assert.Equal(t, []string{"c9"}, l.Unassigned)
}

func TestPopularPageFeature(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	ten, err := s.Tenant(ctx, "tacos.test")
	require.NoError(t, err)

	pop, err := s.Popular(ctx, ten, 5)
	require.NoError(t, err)
	require.Len(t, pop, 1)
	assert.Equal(t, "a1", pop[0].ID)

	p, err := s.Page(ctx, ten, "about")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "About", p.Title)

	p, err = s.Page(ctx, ten, "secret")
	require.NoError(t, err)
	assert.Nil(t, p)

	on, err := s.HasFeature(ctx, ten, "Newsletter")
	require.NoError(t, err)
	assert.True(t, on)

	other, err := s.Tenant(ctx, "bars.test")
	require.NoError(t, err)
	on, err = s.HasFeature(ctx, other, "newsletter")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestFeaturesAndStatus(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	assert.False(t, s.Status().Fresh)
	assert.True(t, s.Status().SnapshotAt.IsZero())

	ten, err := s.Tenant(ctx, "bars.test")
	require.NoError(t, err)
	names, err := s.Features(ctx, ten)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)

	ten, err = s.Tenant(ctx, "tacos.test")
	require.NoError(t, err)
	names, err = s.Features(ctx, ten)
	require.NoError(t, err)
	assert.Equal(t, []string{"newsletter"}, names)

	st := s.Status()
	assert.True(t, st.Fresh)
	assert.False(t, st.SnapshotAt.IsZero())
	assert.Positive(t, st.Entries)

	s.Invalidate()
	assert.False(t, s.Status().Fresh)
}

type downStore struct{}

func (downStore) Query(_ context.Context, table record.Table, _ record.Query) ([]record.Record, error) {
	return nil, &record.QueryError{Table: table, Status: 503, Err: errors.New("unavailable")}
}

func serviceOver(st record.Store) *Service {
	c := cache.New(cache.Options{TTL: time.Hour})
	repo := content.NewRepository(c, fallback.New(st, time.Second), st, content.Options{})
	return NewService(repo, tenant.NewResolver(tenant.Normalizer{}, repo, c), Options{})
}

func TestReady(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, newService(t).Ready(ctx))

	retired := fixture.New(nil)
	retired.Put(record.TableTenants,
		rec("t1", map[string]any{"Name": "Gone", "Domain": "gone.test", "Active": false}))
	err := serviceOver(retired).Ready(ctx)
	require.Error(t, err)
	assert.True(t, config.IsConfiguration(err))
	assert.ErrorIs(t, err, tenant.ErrNoActiveTenant)

	// An unreachable store is not a configuration problem.
	assert.NoError(t, serviceOver(downStore{}).Ready(ctx))
}
