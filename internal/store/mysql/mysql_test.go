package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenantcms/internal/record"
	"github.com/yanizio/tenantcms/internal/store/fixture"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return New(sqlx.NewDb(raw, "mysql")), mock
}

func TestQuery_ViewAndFilter(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT tenant_id\s+FROM\s+content_view`).
		WithArgs("Articles", "T1 Articles").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}).AddRow("t1"))
	mock.ExpectQuery(`SELECT id, fields\s+FROM\s+content_record`).
		WithArgs("Articles", `$."Site"`, "t1", `$."Published"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fields"}).
			AddRow("a1", []byte(`{"Site":["t1"],"Published":true,"Rank":2}`)).
			AddRow("a2", []byte(`{"Site":["t1"],"Published":false,"Rank":1}`)).
			AddRow("a3", []byte(`{"Site":["t1"],"Published":true,"Rank":1}`)))

	got, err := s.Query(context.Background(), record.TableArticles, record.Query{
		View:   "T1 Articles",
		Filter: record.Eq{Field: record.FieldPublished, Value: true},
		Sort:   []record.Sort{{Field: "Rank", Direction: record.Asc}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a3", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_UnknownView(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT tenant_id`).
		WithArgs("Articles", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}))

	_, err := s.Query(context.Background(), record.TableArticles, record.Query{View: "nope"})
	var qe *record.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "nope", qe.View)
}

func TestQuery_PrivilegeErrorIsPermission(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, fields`).
		WillReturnError(&driver.MySQLError{Number: 1142, Message: "SELECT command denied"})

	_, err := s.Query(context.Background(), record.TableCategories, record.Query{})
	assert.True(t, record.IsPermission(err))
}

func TestQuery_MaxRecords(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, fields`).
		WithArgs("Articles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "fields"}).
			AddRow("a1", []byte(`{}`)).
			AddRow("a2", []byte(`{}`)))

	got, err := s.Query(context.Background(), record.TableArticles, record.Query{MaxRecords: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestToSQL(t *testing.T) {
	clause, args, ok := toSQL(record.And{
		record.Contains{Field: "Site", Value: "t1"},
		record.Eq{Field: "Published", Value: true},
		record.Not{X: record.Eq{Field: "Slug", Value: "x"}},
	})
	require.True(t, ok)
	assert.Equal(t,
		`(JSON_CONTAINS(JSON_EXTRACT(fields, ?), JSON_QUOTE(?))) AND (JSON_EXTRACT(fields, ?) = true) AND `+
			`(NOT (JSON_UNQUOTE(JSON_EXTRACT(fields, ?)) = ?))`, clause)
	assert.Equal(t, []any{`$."Site"`, "t1", `$."Published"`, `$."Slug"`, "x"}, args)

	_, _, ok = toSQL(record.Or{record.Eq{Field: "X", Value: []string{"a"}}})
	assert.False(t, ok)

	clause, _, ok = toSQL(record.Or{})
	require.True(t, ok)
	assert.Equal(t, "FALSE", clause)
}

func TestReplaceTable(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM content_record WHERE table_name = \?`).
		WithArgs("Articles").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`INSERT INTO content_record`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.ReplaceTable(context.Background(), record.TableArticles, []record.Record{
		{ID: "a1", Fields: map[string]any{"Slug": "one"}},
		{ID: "a2", Fields: map[string]any{"Slug": "two"}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSync(t *testing.T) {
	src := fixture.New(nil)
	src.Put(record.TableTenants, record.Record{ID: "t1", Fields: map[string]any{
		"Domain": "one.test", "Active": true, "Articles View": "T1 Articles",
	}})
	src.Put(record.TableArticles, record.Record{ID: "a1", Fields: map[string]any{"Site": []any{"t1"}}})

	dst, mock := newMock(t)
	for _, table := range Tables {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM content_record`).WithArgs(string(table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		if table == record.TableTenants || table == record.TableArticles {
			mock.ExpectExec(`INSERT INTO content_record`).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()
	}
	mock.ExpectExec(`INSERT INTO content_view`).
		WithArgs("Articles", "T1 Articles", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, Sync(context.Background(), src, dst))
	assert.NoError(t, mock.ExpectationsWereMet())
}
