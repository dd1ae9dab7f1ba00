// internal/model/mapper.go
//
// Field-bag → typed struct mapping.
//
// Field names below mirror the column names used in the remote base.
// Unknown tenant fields are copied into Tenant.Theme untouched so the
// presentation layer can read branding without this package knowing it.
package model

import (
	"strings"
	"time"

	"github.com/yanizio/tenantcms/internal/record"
	"github.com/yanizio/tenantcms/internal/routing"
)

// Column names.
const (
	colName           = "Name"
	colDomain         = "Domain"
	colLocalDomain    = "Local Domain"
	colOrder          = "Order"
	colTitle          = "Title"
	colSlug           = "Slug"
	colSummary        = "Summary"
	colBody           = "Body"
	colIntro          = "Intro"
	colPublishDate    = "Publish Date"
	colLastUpdated    = "Last Updated"
	colCategories     = "Categories"
	colRedirectStatus = "Redirect Status"
	colRedirectTarget = "Redirect Target"
	colPopular        = "Popular"
	colRelated        = "Related Articles"
	colImage          = "Image"
	colEntries        = "Entries"
	colBusinesses     = "Businesses"
	colPriority       = "Priority"
	colSites          = "Sites"
)

// viewColumns maps a tenant column to the table whose view it names.
var viewColumns = map[string]record.Table{
	"Articles View":   record.TableArticles,
	"Guides View":     record.TableGuides,
	"Pages View":      record.TablePages,
	"Categories View": record.TableCategories,
}

var tenantColumns = map[string]bool{
	colName: true, colDomain: true, colLocalDomain: true,
	record.FieldActive: true, colOrder: true,
}

// TenantFrom maps a row of the tenant table.
func TenantFrom(r record.Record) Tenant {
	t := Tenant{
		ID:         r.ID,
		Name:       r.String(colName),
		Domain:     strings.ToLower(strings.TrimSpace(r.String(colDomain))),
		AltDomains: splitDomains(r.Strings(colLocalDomain)),
		Active:     r.Bool(record.FieldActive),
		Ordinal:    int(r.Number(colOrder)),
		Theme:      make(map[string]any),
	}
	for col, table := range viewColumns {
		if v := strings.TrimSpace(r.String(col)); v != "" {
			if t.Views == nil {
				t.Views = make(map[record.Table]string)
			}
			t.Views[table] = v
		}
	}
	for k, v := range r.Fields {
		if _, isView := viewColumns[k]; tenantColumns[k] || isView {
			continue
		}
		t.Theme[k] = v
	}
	return t
}

func itemFrom(r record.Record) Item {
	return Item{
		ID:             r.ID,
		TenantIDs:      r.Strings(record.FieldTenant),
		Published:      r.Bool(record.FieldPublished),
		Slug:           slugOf(r),
		Title:          r.String(colTitle),
		Summary:        r.String(colSummary),
		PublishedAt:    parseDate(r.String(colPublishDate)),
		UpdatedAt:      parseDate(r.String(colLastUpdated)),
		CategoryIDs:    r.Strings(colCategories),
		RedirectStatus: strings.TrimSpace(r.String(colRedirectStatus)),
		RedirectTarget: strings.TrimSpace(r.String(colRedirectTarget)),
		Images:         attachments(r.Maps(colImage)),
	}
}

// ArticleFrom maps a row of the article table.
func ArticleFrom(r record.Record) Article {
	return Article{
		Item:       itemFrom(r),
		Body:       r.String(colBody),
		Popular:    r.Bool(colPopular),
		RelatedIDs: r.Strings(colRelated),
	}
}

// GuideFrom maps a row of the guide table.  Entries come from the
// structured "Entries" field when present, else from the ordered
// "Businesses" link list.
func GuideFrom(r record.Record) Guide {
	g := Guide{Item: itemFrom(r), Intro: r.String(colIntro)}
	if rows := r.Maps(colEntries); len(rows) > 0 {
		for i, m := range rows {
			g.Entries = append(g.Entries, GuideEntry{
				ID:         str(m["id"]),
				Position:   i + 1,
				BusinessID: str(m["business"]),
				Heading:    str(m["heading"]),
				Note:       str(m["note"]),
			})
		}
		return g
	}
	for i, id := range r.Strings(colBusinesses) {
		g.Entries = append(g.Entries, GuideEntry{ID: id, Position: i + 1, BusinessID: id})
	}
	return g
}

// PageFrom maps a row of the page table.
func PageFrom(r record.Record) Page {
	return Page{
		ID:        r.ID,
		TenantIDs: r.Strings(record.FieldTenant),
		Slug:      slugOf(r),
		Title:     r.String(colTitle),
		Body:      r.String(colBody),
		Published: r.Bool(record.FieldPublished),
	}
}

// CategoryFrom maps a row of the category table.
func CategoryFrom(r record.Record) Category {
	return Category{
		ID:        r.ID,
		TenantIDs: r.Strings(record.FieldTenant),
		Name:      r.String(colName),
		Slug:      slugOrName(r),
		Priority:  int(r.Number(colPriority)),
	}
}

// FeatureFrom maps a row of the feature table.
func FeatureFrom(r record.Record) Feature {
	return Feature{
		ID:        r.ID,
		Name:      r.String(colName),
		TenantIDs: r.Strings(colSites),
	}
}

// slugOf returns the row's slug, derived from its title when blank.
func slugOf(r record.Record) string {
	if s := strings.TrimSpace(r.String(colSlug)); s != "" {
		return s
	}
	return routing.MakeSlug(r.String(colTitle))
}

func slugOrName(r record.Record) string {
	if s := strings.TrimSpace(r.String(colSlug)); s != "" {
		return s
	}
	return routing.MakeSlug(r.String(colName))
}

// MapAll applies fn to every record.
func MapAll[T any](rs []record.Record, fn func(record.Record) T) []T {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		out = append(out, fn(r))
	}
	return out
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02"}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return &t
		}
	}
	return nil
}

func attachments(rows []map[string]any) []Attachment {
	if len(rows) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(rows))
	for _, m := range rows {
		out = append(out, Attachment{
			URL:    str(m["url"]),
			Width:  num(m["width"]),
			Height: num(m["height"]),
		})
	}
	return out
}

// splitDomains accepts list fields and comma-separated text alike.
func splitDomains(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, d := range strings.Split(v, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
