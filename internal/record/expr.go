package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a boolean filter over record fields.  Backends translate it
// into their own query language; Match evaluates it client-side.
type Expr interface {
	// Formula renders the expression in the remote formula language.
	Formula() string
	// Match evaluates the expression against an already-fetched record.
	Match(Record) bool
}

// Eq is scalar field equality.
type Eq struct {
	Field string
	Value any // string, bool, or number
}

// Contains tests whether a multi-value field holds Value.
//
// The remote formula for this predicate flattens the field with
// ARRAYJOIN, which yields display values for link fields rather than ids.
// It can silently match nothing; see internal/fallback.
type Contains struct {
	Field string
	Value string
}

// And is the conjunction of its terms.  An empty And matches everything.
type And []Expr

// Or is the disjunction of its terms.  An empty Or matches nothing.
type Or []Expr

// Not negates X.
type Not struct{ X Expr }

func (e Eq) Formula() string {
	switch v := e.Value.(type) {
	case bool:
		if v {
			return fmt.Sprintf("{%s}=TRUE()", e.Field)
		}
		return fmt.Sprintf("NOT({%s})", e.Field)
	case int:
		return fmt.Sprintf("{%s}=%d", e.Field, v)
	case float64:
		return fmt.Sprintf("{%s}=%s", e.Field, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return fmt.Sprintf("{%s}=%s", e.Field, quote(fmt.Sprint(v)))
	}
}

func (e Eq) Match(r Record) bool {
	switch v := e.Value.(type) {
	case bool:
		return r.Bool(e.Field) == v
	case int:
		return r.Number(e.Field) == float64(v)
	case float64:
		return r.Number(e.Field) == v
	default:
		return r.String(e.Field) == fmt.Sprint(v)
	}
}

func (e Contains) Formula() string {
	return fmt.Sprintf("FIND(%s, ARRAYJOIN({%s}))", quote(e.Value), e.Field)
}

func (e Contains) Match(r Record) bool { return r.Links(e.Field, e.Value) }

func (a And) Formula() string {
	switch len(a) {
	case 0:
		return "TRUE()"
	case 1:
		return a[0].Formula()
	}
	return "AND(" + join(a) + ")"
}

func (a And) Match(r Record) bool {
	for _, e := range a {
		if !e.Match(r) {
			return false
		}
	}
	return true
}

func (o Or) Formula() string {
	switch len(o) {
	case 0:
		return "FALSE()"
	case 1:
		return o[0].Formula()
	}
	return "OR(" + join(o) + ")"
}

func (o Or) Match(r Record) bool {
	for _, e := range o {
		if e.Match(r) {
			return true
		}
	}
	return false
}

func (n Not) Formula() string     { return "NOT(" + n.X.Formula() + ")" }
func (n Not) Match(r Record) bool { return !n.X.Match(r) }

func join(terms []Expr) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.Formula()
	}
	return strings.Join(parts, ", ")
}

// quote renders a formula string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`) + "'"
}
