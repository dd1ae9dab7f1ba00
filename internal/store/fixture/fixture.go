// internal/store/fixture/fixture.go
//
// File-backed record store for local development and tests.
//
// Context
// -------
// A fixture file mirrors the remote base: tables of id + field rows, plus
// named views scoped to one tenant.  Queries are answered in memory with
// the same semantics the remote API documents (view scope, filter,
// sort, max records), so the rest of the stack cannot tell the
// difference.
//
//	tables:
//	  Sites:
//	    - id: recSite1
//	      fields: {Name: Taco Town, Domain: tacotown.com, Active: true}
//	views:
//	  Articles:
//	    Taco Articles: recSite1
package fixture

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/tenantcms/internal/record"
)

// file is the on-disk shape.
type file struct {
	Tables map[record.Table][]row              `yaml:"tables"`
	Views  map[record.Table]map[string]string `yaml:"views"` // view name → tenant id
}

type row struct {
	ID     string         `yaml:"id"`
	Fields map[string]any `yaml:"fields"`
}

// Store answers queries from memory.  Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[record.Table][]record.Record
	views  map[record.Table]map[string]string
}

// New builds a Store from in-memory tables.
func New(tables map[record.Table][]record.Record) *Store {
	if tables == nil {
		tables = make(map[record.Table][]record.Record)
	}
	return &Store{tables: tables, views: make(map[record.Table]map[string]string)}
}

// Load reads a YAML fixture file.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("fixture: parse %s: %w", path, err)
	}

	s := New(nil)
	for table, rows := range f.Tables {
		for _, r := range rows {
			s.tables[table] = append(s.tables[table], record.Record{ID: r.ID, Fields: normalize(r.Fields)})
		}
	}
	for table, views := range f.Views {
		for name, tenantID := range views {
			s.AddView(table, name, tenantID)
		}
	}
	return s, nil
}

// AddView registers a view on table that yields rows linked to tenantID.
func (s *Store) AddView(table record.Table, name, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.views[table] == nil {
		s.views[table] = make(map[string]string)
	}
	s.views[table][name] = tenantID
}

// Put appends rows to table.
func (s *Store) Put(table record.Table, rows ...record.Record) {
	s.mu.Lock()
	s.tables[table] = append(s.tables[table], rows...)
	s.mu.Unlock()
}

// Query implements record.Store.
func (s *Store) Query(ctx context.Context, table record.Table, q record.Query) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &record.QueryError{Table: table, View: q.View, Err: err}
	}

	s.mu.RLock()
	rows := s.tables[table]
	var (
		viewTenant string
		hasView    bool
	)
	if q.View != "" {
		viewTenant, hasView = s.views[table][q.View]
	}
	s.mu.RUnlock()

	if q.View != "" && !hasView {
		return nil, &record.QueryError{Table: table, View: q.View, Status: 422,
			Err: fmt.Errorf("view %q not found", q.View)}
	}

	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if hasView && !r.Links(record.FieldTenant, viewTenant) {
			continue
		}
		if q.Filter != nil && !q.Filter.Match(r) {
			continue
		}
		out = append(out, r)
	}
	record.SortRecords(out, q.Sort)
	if q.MaxRecords > 0 && len(out) > q.MaxRecords {
		out = out[:q.MaxRecords]
	}
	return out, nil
}

// normalize converts YAML-decoded values into the JSON shapes the remote
// API returns ([]any, map[string]any, float64).
func normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	case map[string]any:
		return normalize(t)
	}
	return v
}
