// internal/record/record.go
//
// Remote record-store contract.
//
// Context
// -------
// All branding, pages, and content live in a remotely hosted record
// store.  The rest of the code reaches it only through `Store.Query`,
// which returns plain id + field bags.  Typed mapping happens in
// internal/model; nothing past internal/fallback sees a `Record`.
//
// Field shapes
// ------------
//   - link fields      → []string of foreign record ids
//   - attachment field → []{url, width, height}
//   - bool, string, and date-string fields are passed through as-is
package record

import (
	"context"
	"strconv"
	"strings"
)

// Table names a table in the remote store.
type Table string

// Tables consumed by this subsystem.
const (
	TableTenants    Table = "Sites"
	TableArticles   Table = "Articles"
	TableGuides     Table = "Guides"
	TablePages      Table = "Pages"
	TableCategories Table = "Categories"
	TableFeatures   Table = "Features"
)

// Well-known field names shared by every content table.
const (
	FieldTenant    = "Site"
	FieldPublished = "Published"
	FieldActive    = "Active"
)

// Record is one row: an id plus an untyped field bag.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// SortDirection is "asc" or "desc".
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction SortDirection
}

// Query is the narrow parameter set accepted by every backend.
type Query struct {
	View       string // pre-filtered scope, optional
	Filter     Expr   // nil means no filter
	Sort       []Sort
	MaxRecords int // 0 means unbounded
}

// Store is implemented by every backend (HTTP API, SQL mirror, fixtures).
type Store interface {
	Query(ctx context.Context, table Table, q Query) ([]Record, error)
}

// -----------------------------------------------------------------------------
// Field accessors
// -----------------------------------------------------------------------------

// String returns a string field or "".
func (r Record) String(name string) string {
	switch v := r.Fields[name].(type) {
	case string:
		return v
	case []any:
		// Lookup fields arrive as single-element arrays.
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Bool reports a checkbox field.  Missing means false.
func (r Record) Bool(name string) bool {
	switch v := r.Fields[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Number returns a numeric field or 0.
func (r Record) Number(name string) float64 {
	switch v := r.Fields[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}

// Strings returns a link or multi-select field as a slice of strings.
func (r Record) Strings(name string) []string {
	switch v := r.Fields[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Links reports whether a link field contains id.
func (r Record) Links(name, id string) bool {
	for _, s := range r.Strings(name) {
		if s == id {
			return true
		}
	}
	return false
}

// Maps returns a field holding an array of objects (attachments).
func (r Record) Maps(name string) []map[string]any {
	switch v := r.Fields[name].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
