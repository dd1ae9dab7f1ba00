package fallback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/record"
	"github.com/yanizio/tenantcms/internal/store/fixture"
)

// flakyStore wraps a fixture store and reproduces the remote quirks:
// formulas over link fields match nothing, and individual query shapes
// can be made to fail or hang.
type flakyStore struct {
	inner       record.Store
	brokenLinks bool
	looseLinks  bool // formulas ignore the filter and return every row
	failView    error
	failFormula error
	failScan    error
	hangFormula bool

	mu    sync.Mutex
	calls []string
}

func (s *flakyStore) Query(ctx context.Context, table record.Table, q record.Query) ([]record.Record, error) {
	kind := classify(q)
	s.mu.Lock()
	s.calls = append(s.calls, kind)
	s.mu.Unlock()

	switch kind {
	case "view":
		if s.failView != nil {
			return nil, s.failView
		}
	case "formula":
		if s.hangFormula {
			<-ctx.Done()
			return nil, &record.QueryError{Table: table, Err: ctx.Err()}
		}
		if s.failFormula != nil {
			return nil, s.failFormula
		}
		if s.brokenLinks {
			return nil, nil
		}
		if s.looseLinks {
			return s.inner.Query(ctx, table, record.Query{Sort: q.Sort})
		}
	case "scan":
		if s.failScan != nil {
			return nil, s.failScan
		}
	}
	return s.inner.Query(ctx, table, q)
}

func classify(q record.Query) string {
	if q.View != "" {
		return "view"
	}
	if hasContains(q.Filter) {
		return "formula"
	}
	return "scan"
}

func hasContains(e record.Expr) bool {
	switch x := e.(type) {
	case record.Contains:
		return true
	case record.And:
		for _, t := range x {
			if hasContains(t) {
				return true
			}
		}
	}
	return false
}

func art(id, tenant string, published bool) record.Record {
	return record.Record{ID: id, Fields: map[string]any{
		record.FieldTenant:    []any{tenant},
		record.FieldPublished: published,
	}}
}

func newFixture() *fixture.Store {
	s := fixture.New(nil)
	s.Put(record.TableArticles,
		art("a1", "t1", true),
		art("a2", "t2", true),
		art("a3", "t1", false),
		art("a4", "t1", true),
	)
	s.AddView(record.TableArticles, "T1 Articles", "t1")
	return s
}

func idsOf(rs []record.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

var t1 = &model.Tenant{ID: "t1"}

func TestFetch_ViewTierAppliesLocalConstraints(t *testing.T) {
	st := &flakyStore{inner: newFixture()}
	ten := &model.Tenant{ID: "t1", Views: map[record.Table]string{record.TableArticles: "T1 Articles"}}

	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, ten, Constraints{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a4"}, idsOf(got))
	assert.Equal(t, []string{"view"}, st.calls)
}

func TestFetch_FormulaTierWhenNoView(t *testing.T) {
	st := &flakyStore{inner: newFixture()}
	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, t1, Constraints{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a4"}, idsOf(got))
	assert.Equal(t, []string{"formula"}, st.calls)
}

func TestFetch_FormulaRowsRecheckedForTenant(t *testing.T) {
	fx := newFixture()
	fx.Put(record.TableArticles, art("a5", "t10", true))
	st := &flakyStore{inner: fx, looseLinks: true}

	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, t1, Constraints{MaxRecords: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a3"}, idsOf(got))
	assert.Equal(t, []string{"formula"}, st.calls)
}

// A formula that silently matches nothing must not be taken as the answer.
func TestFetch_EmptyFormulaIsInconclusive(t *testing.T) {
	st := &flakyStore{inner: newFixture(), brokenLinks: true}
	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, t1, Constraints{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a4"}, idsOf(got))
	assert.Equal(t, []string{"formula", "scan"}, st.calls)
}

// The scan tier returns exactly what a correct formula filter should.
func TestFetch_ScanMatchesCorrectFormula(t *testing.T) {
	fx := newFixture()
	for _, tenant := range []string{"t1", "t2", "t3"} {
		ten := &model.Tenant{ID: tenant}
		c := Constraints{PublishedOnly: true}

		want := FormulaStrategy{Store: fx}.Try(context.Background(),
			Request{Table: record.TableArticles, Tenant: ten, Constraints: c})
		require.NotEqual(t, Failed, want.Outcome)
		got := ScanStrategy{Store: &flakyStore{inner: fx, brokenLinks: true}}.Try(context.Background(),
			Request{Table: record.TableArticles, Tenant: ten, Constraints: c})

		assert.Equal(t, idsOf(want.Records), idsOf(got.Records), "tenant %s", tenant)
	}
}

func TestFetch_LegitimatelyEmpty(t *testing.T) {
	st := &flakyStore{inner: newFixture()}
	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, &model.Tenant{ID: "t9"}, Constraints{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, []string{"formula", "scan"}, st.calls)
}

func TestFetch_TierTimeoutEscalates(t *testing.T) {
	st := &flakyStore{inner: newFixture(), hangFormula: true}
	got, err := New(st, 20*time.Millisecond).Fetch(context.Background(), record.TableArticles, t1, Constraints{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a4"}, idsOf(got))
}

func TestFetch_AllTiersFail(t *testing.T) {
	boom := &record.QueryError{Table: record.TableArticles, Status: 503, Err: errors.New("unavailable")}
	st := &flakyStore{inner: newFixture(), failFormula: boom, failScan: boom}

	_, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, t1, Constraints{})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, record.TableArticles, fe.Table)
	assert.Equal(t, "t1", fe.TenantID)
	assert.Equal(t, "fetch", fe.Op)
	assert.Len(t, fe.Errs, 2)
	assert.ErrorIs(t, err, boom)
}

func TestFetch_PermissionIsSoft(t *testing.T) {
	perm := &record.PermissionError{Table: record.TableCategories}
	st := &flakyStore{inner: newFixture(), failFormula: perm, failScan: perm}

	got, err := New(st, time.Second).Fetch(context.Background(), record.TableCategories, t1, Constraints{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_MaxRecordsAfterTenantFilter(t *testing.T) {
	st := &flakyStore{inner: newFixture(), brokenLinks: true}
	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, t1, Constraints{MaxRecords: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a3"}, idsOf(got))
}

func TestFetch_TenantAgnostic(t *testing.T) {
	st := &flakyStore{inner: newFixture()}
	got, err := New(st, time.Second).Fetch(context.Background(), record.TableArticles, nil, Constraints{PublishedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a4"}, idsOf(got))
	assert.Equal(t, []string{"scan"}, st.calls)
}
