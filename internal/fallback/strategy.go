// internal/fallback/strategy.go
//
// Tiered query strategies.
//
// Context
// -------
// The remote formula language cannot be trusted to filter on multi-value
// link fields: a formula that should match can silently return zero rows.
// Each tier below is one way of asking the same question.  The engine
// tries them in order and treats an empty answer as inconclusive, so the
// full-scan tier is always reachable as ground truth.
//
//  1. View     – tenant-configured pre-filtered view, no link filter.
//  2. Formula  – link containment plus local constraints, server-side.
//  3. Scan     – local constraints server-side, link check client-side.
package fallback

import (
	"context"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/record"
)

// Outcome classifies a tier result.
type Outcome int

const (
	// Found means the tier returned at least one record.
	Found Outcome = iota
	// Inconclusive means the tier completed but returned nothing.
	Inconclusive
	// Failed means the query layer returned an error.
	Failed
	// Skipped means the tier does not apply to this request.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Inconclusive:
		return "inconclusive"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Result is what one tier produced.
type Result struct {
	Outcome Outcome
	Records []record.Record
	Err     error
}

func result(recs []record.Record, err error) Result {
	switch {
	case err != nil:
		return Result{Outcome: Failed, Err: err}
	case len(recs) == 0:
		return Result{Outcome: Inconclusive}
	default:
		return Result{Outcome: Found, Records: recs}
	}
}

// Constraints are the content-local conditions of a fetch.  They never
// mention the tenant link; that is added per tier.
type Constraints struct {
	PublishedOnly bool
	ActiveOnly    bool
	Where         []record.Expr // extra scalar conditions, e.g. slug equality
	Sort          []record.Sort
	MaxRecords    int // applied after tenant filtering
}

// Local returns the constraints as one expression, or nil when there are
// none.
func (c Constraints) Local() record.Expr {
	var terms record.And
	if c.PublishedOnly {
		terms = append(terms, record.Eq{Field: record.FieldPublished, Value: true})
	}
	if c.ActiveOnly {
		terms = append(terms, record.Eq{Field: record.FieldActive, Value: true})
	}
	terms = append(terms, c.Where...)
	if len(terms) == 0 {
		return nil
	}
	return terms
}

func (c Constraints) match(r record.Record) bool {
	if e := c.Local(); e != nil {
		return e.Match(r)
	}
	return true
}

// Request is one fetch, shared by every tier.
type Request struct {
	Table       record.Table
	Tenant      *model.Tenant // nil for tenant-agnostic tables
	Constraints Constraints
}

func (r Request) tenantID() string {
	if r.Tenant == nil {
		return ""
	}
	return r.Tenant.ID
}

func (r Request) link() record.Expr {
	return record.Contains{Field: record.FieldTenant, Value: r.tenantID()}
}

// Strategy is one fallback tier.
type Strategy interface {
	Name() string
	Try(ctx context.Context, req Request) Result
}

// -----------------------------------------------------------------------------
// Tier 1: view
// -----------------------------------------------------------------------------

// ViewStrategy queries the tenant's pre-filtered view.  Views may include
// unpublished rows by design, so local constraints are applied here.
type ViewStrategy struct{ Store record.Store }

func (ViewStrategy) Name() string { return "view" }

func (s ViewStrategy) Try(ctx context.Context, req Request) Result {
	view := req.Tenant.View(req.Table)
	if view == "" {
		return Result{Outcome: Skipped}
	}
	recs, err := s.Store.Query(ctx, req.Table, record.Query{View: view, Sort: req.Constraints.Sort})
	if err != nil {
		return result(nil, err)
	}
	return result(filter(recs, req.Constraints.match), nil)
}

// -----------------------------------------------------------------------------
// Tier 2: formula
// -----------------------------------------------------------------------------

// FormulaStrategy filters server-side on link containment and local
// constraints.  Zero rows from this tier prove nothing.
//
// The remote containment test is a substring search, so tenant "t1" also
// matches rows linked to "t10".  Rows are re-checked in memory, and for
// tenant queries MaxRecords is left to the engine for the same reason.
type FormulaStrategy struct{ Store record.Store }

func (FormulaStrategy) Name() string { return "formula" }

func (s FormulaStrategy) Try(ctx context.Context, req Request) Result {
	terms := record.And{}
	q := record.Query{Sort: req.Constraints.Sort}
	if req.Tenant != nil {
		terms = append(terms, req.link())
	} else {
		q.MaxRecords = req.Constraints.MaxRecords
	}
	if l := req.Constraints.Local(); l != nil {
		terms = append(terms, l)
	}
	if len(terms) > 0 {
		q.Filter = terms
	}
	recs, err := s.Store.Query(ctx, req.Table, q)
	if err != nil || req.Tenant == nil {
		return result(recs, err)
	}
	id := req.tenantID()
	return result(filter(recs, func(r record.Record) bool {
		return r.Links(record.FieldTenant, id)
	}), nil)
}

// -----------------------------------------------------------------------------
// Tier 3: full scan
// -----------------------------------------------------------------------------

// ScanStrategy pulls every row matching the local constraints and checks
// the tenant link in memory.  MaxRecords is not sent upstream because the
// limit must apply after tenant filtering.
type ScanStrategy struct{ Store record.Store }

func (ScanStrategy) Name() string { return "scan" }

func (s ScanStrategy) Try(ctx context.Context, req Request) Result {
	recs, err := s.Store.Query(ctx, req.Table, record.Query{
		Filter: req.Constraints.Local(),
		Sort:   req.Constraints.Sort,
	})
	if err != nil {
		return result(nil, err)
	}
	if req.Tenant == nil {
		return result(recs, nil)
	}
	id := req.tenantID()
	return result(filter(recs, func(r record.Record) bool {
		return r.Links(record.FieldTenant, id)
	}), nil)
}

func filter(recs []record.Record, keep func(record.Record) bool) []record.Record {
	out := recs[:0:0]
	for _, r := range recs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
