package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenantcms/internal/record"
)

const sample = `
tables:
  Articles:
    - id: a1
      fields: {Site: [t1], Published: true, Slug: one, Rank: 2}
    - id: a2
      fields: {Site: [t2], Published: true, Slug: two, Rank: 1}
    - id: a3
      fields: {Site: [t1], Published: false, Slug: three, Rank: 3}
views:
  Articles:
    T1 Articles: t1
`

func load(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	s, err := Load(path)
	require.NoError(t, err)
	return s
}

func ids(rs []record.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestQuery_View(t *testing.T) {
	s := load(t)
	got, err := s.Query(context.Background(), record.TableArticles, record.Query{View: "T1 Articles"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a3"}, ids(got))

	_, err = s.Query(context.Background(), record.TableArticles, record.Query{View: "nope"})
	var qe *record.QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestQuery_FilterSortLimit(t *testing.T) {
	s := load(t)
	got, err := s.Query(context.Background(), record.TableArticles, record.Query{
		Filter:     record.Eq{Field: record.FieldPublished, Value: true},
		Sort:       []record.Sort{{Field: "Rank", Direction: record.Asc}},
		MaxRecords: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, ids(got))

	got, err = s.Query(context.Background(), record.TableArticles, record.Query{
		Sort:       []record.Sort{{Field: "Rank", Direction: record.Desc}},
		MaxRecords: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, ids(got))
}

func TestQuery_CancelledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Query(ctx, record.TableArticles, record.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}
