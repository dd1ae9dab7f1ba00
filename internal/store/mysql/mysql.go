// internal/store/mysql/mysql.go
//
// SQL mirror of the hosted content base.
//
// Context
// -------
// Some deployments keep a nightly copy of the base in MySQL so reads do
// not depend on the hosted API's rate limit.  Each record is stored as a
// JSON document, so the schema never changes when editors add columns:
//
//	CREATE TABLE content_record (
//	    table_name VARCHAR(64)  NOT NULL,
//	    id         VARCHAR(32)  NOT NULL,
//	    position   INT          NOT NULL,
//	    fields     JSON         NOT NULL,
//	    synced_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    PRIMARY KEY (table_name, id)
//	);
//
//	CREATE TABLE content_view (
//	    table_name VARCHAR(64)  NOT NULL,
//	    view_name  VARCHAR(128) NOT NULL,
//	    tenant_id  VARCHAR(32)  NOT NULL,
//	    PRIMARY KEY (table_name, view_name)
//	);
//
// Filters are pushed down as JSON predicates where they translate, then
// re-checked in Go so both evaluations agree exactly.  Rows come back in
// the order they were synced, matching the hosted API's default order.
//
// Notes
// -----
//   - MySQL privilege errors (1044, 1142, 1143) surface as
//     *record.PermissionError; everything else as *record.QueryError.
//   - Store never logs; callers decide.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tenantcms/internal/record"
)

// Store implements record.Store over a *sqlx.DB.  Safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// New wraps an open pool.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

type row struct {
	ID     string `db:"id"`
	Fields []byte `db:"fields"`
}

// Query implements record.Store.
func (s *Store) Query(ctx context.Context, table record.Table, q record.Query) ([]record.Record, error) {
	where := []string{"table_name = ?"}
	args := []any{string(table)}

	if q.View != "" {
		tenantID, err := s.viewTenant(ctx, table, q.View)
		if err != nil {
			return nil, s.wrap(table, q.View, err)
		}
		where = append(where, "JSON_CONTAINS(JSON_EXTRACT(fields, ?), JSON_QUOTE(?))")
		args = append(args, jsonPath(record.FieldTenant), tenantID)
	}
	if q.Filter != nil {
		if clause, cargs, ok := toSQL(q.Filter); ok {
			where = append(where, clause)
			args = append(args, cargs...)
		}
	}

	query := `
        SELECT id, fields
        FROM   content_record
        WHERE  ` + strings.Join(where, "\n          AND  ") + `
        ORDER  BY position`

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.wrap(table, q.View, err)
	}

	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		fields := map[string]any{}
		if err := json.Unmarshal(r.Fields, &fields); err != nil {
			return nil, s.wrap(table, q.View, fmt.Errorf("record %s: %w", r.ID, err))
		}
		rec := record.Record{ID: r.ID, Fields: fields}
		if q.Filter != nil && !q.Filter.Match(rec) {
			continue
		}
		out = append(out, rec)
	}
	record.SortRecords(out, q.Sort)
	if q.MaxRecords > 0 && len(out) > q.MaxRecords {
		out = out[:q.MaxRecords]
	}
	return out, nil
}

func (s *Store) viewTenant(ctx context.Context, table record.Table, view string) (string, error) {
	const q = `
        SELECT tenant_id
        FROM   content_view
        WHERE  table_name = ?
          AND  view_name  = ?
        LIMIT  1`
	var id string
	if err := s.db.GetContext(ctx, &id, q, string(table), view); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("view %q not found", view)
		}
		return "", err
	}
	return id, nil
}

// -----------------------------------------------------------------------------
// Writes (used by the sync job)
// -----------------------------------------------------------------------------

// ReplaceTable swaps the stored rows of table for recs in one transaction.
func (s *Store) ReplaceTable(ctx context.Context, table record.Table, recs []record.Record) error {
	type ins struct {
		Table    string `db:"table_name"`
		ID       string `db:"id"`
		Position int    `db:"position"`
		Fields   []byte `db:"fields"`
	}
	batch := make([]ins, 0, len(recs))
	for i, r := range recs {
		raw, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", table, r.ID, err)
		}
		batch = append(batch, ins{Table: string(table), ID: r.ID, Position: i, Fields: raw})
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.wrap(table, "", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_record WHERE table_name = ?`, string(table)); err != nil {
		return s.wrap(table, "", err)
	}
	if len(batch) > 0 {
		const q = `
            INSERT INTO content_record (table_name, id, position, fields)
            VALUES (:table_name, :id, :position, :fields)`
		if _, err := tx.NamedExecContext(ctx, q, batch); err != nil {
			return s.wrap(table, "", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.wrap(table, "", err)
	}
	return nil
}

// PutView records that view on table yields tenantID's rows.
func (s *Store) PutView(ctx context.Context, table record.Table, view, tenantID string) error {
	const q = `
        INSERT INTO content_view (table_name, view_name, tenant_id)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE tenant_id = VALUES(tenant_id)`
	if _, err := s.db.ExecContext(ctx, q, string(table), view, tenantID); err != nil {
		return s.wrap(table, view, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// MySQL privilege error numbers.
const (
	errDBAccessDenied     = 1044
	errTableAccessDenied  = 1142
	errColumnAccessDenied = 1143
)

func (s *Store) wrap(table record.Table, view string, err error) error {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDBAccessDenied, errTableAccessDenied, errColumnAccessDenied:
			return &record.PermissionError{Table: table}
		}
	}
	return &record.QueryError{Table: table, View: view, Err: err}
}

// jsonPath addresses a top-level key, quoted so spaces are allowed.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// toSQL translates e into a WHERE clause over the fields column.  ok is
// false when some term has no SQL form; the caller then filters in Go
// only.
func toSQL(e record.Expr) (clause string, args []any, ok bool) {
	switch x := e.(type) {
	case record.Eq:
		path := jsonPath(x.Field)
		switch v := x.Value.(type) {
		case bool:
			if v {
				return "JSON_EXTRACT(fields, ?) = true", []any{path}, true
			}
			return "COALESCE(JSON_EXTRACT(fields, ?), false) = false", []any{path}, true
		case int, float64:
			return "JSON_EXTRACT(fields, ?) = ?", []any{path, v}, true
		case string:
			return "JSON_UNQUOTE(JSON_EXTRACT(fields, ?)) = ?", []any{path, v}, true
		}
		return "", nil, false

	case record.Contains:
		return "JSON_CONTAINS(JSON_EXTRACT(fields, ?), JSON_QUOTE(?))", []any{jsonPath(x.Field), x.Value}, true

	case record.And:
		return combine(x, " AND ", "TRUE")

	case record.Or:
		return combine(x, " OR ", "FALSE")

	case record.Not:
		inner, iargs, ok := toSQL(x.X)
		if !ok {
			return "", nil, false
		}
		return "NOT (" + inner + ")", iargs, true
	}
	return "", nil, false
}

func combine(terms []record.Expr, sep, empty string) (string, []any, bool) {
	if len(terms) == 0 {
		return empty, nil, true
	}
	parts := make([]string, 0, len(terms))
	var args []any
	for _, t := range terms {
		c, a, ok := toSQL(t)
		if !ok {
			return "", nil, false
		}
		parts = append(parts, "("+c+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args, true
}
