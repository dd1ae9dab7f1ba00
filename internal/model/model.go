// internal/model/model.go
//
// Typed records for tenants and their content.
//
// Context
// -------
// The remote store hands back loose field bags.  mapper.go converts them
// into these structs right after fetch, so the cache, aggregator, and
// publish resolver work on explicit types only.
//
// Notes
// -----
//   - Every content type carries `TenantIDs` because the tenant link is a
//     multi-value field upstream, even though one id is the norm.
//   - Structs are treated as immutable once placed in a Snapshot.
package model

import (
	"time"

	"github.com/yanizio/tenantcms/internal/record"
)

// Tenant is one branded site.
type Tenant struct {
	ID         string
	Name       string
	Domain     string   // canonical production domain
	AltDomains []string // local / staging domains
	Active     bool
	Ordinal    int                     // lower wins when choosing the default tenant
	Views      map[record.Table]string // optional pre-filtered view per table
	Theme      map[string]any          // opaque to this subsystem
}

// View returns the configured view for table, or "".
func (t *Tenant) View(table record.Table) string {
	if t == nil || t.Views == nil {
		return ""
	}
	return t.Views[table]
}

// Attachment is one element of an attachment field.
type Attachment struct {
	URL    string
	Width  int
	Height int
}

// Item holds the fields shared by Articles and Guides.
type Item struct {
	ID             string
	TenantIDs      []string
	Published      bool
	Slug           string
	Title          string
	Summary        string
	PublishedAt    *time.Time
	UpdatedAt      *time.Time
	CategoryIDs    []string
	RedirectStatus string
	RedirectTarget string
	Images         []Attachment
}

// BelongsTo reports whether the item is linked to tenantID.
func (i *Item) BelongsTo(tenantID string) bool { return contains(i.TenantIDs, tenantID) }

// Article is the short-form content kind.
type Article struct {
	Item
	Body       string
	Popular    bool
	RelatedIDs []string
}

// GuideEntry is one ordered entry in a Guide.  BusinessID points at a
// business/location record resolved outside this subsystem.
type GuideEntry struct {
	ID         string
	Position   int
	BusinessID string
	Heading    string
	Note       string
}

// Guide is the multi-entry content kind.
type Guide struct {
	Item
	Intro   string
	Entries []GuideEntry
}

// Page is a static per-tenant page (about, contact, ...).
type Page struct {
	ID        string
	TenantIDs []string
	Slug      string
	Title     string
	Body      string
	Published bool
}

func (p *Page) BelongsTo(tenantID string) bool { return contains(p.TenantIDs, tenantID) }

// Category is assigned to exactly one tenant.
type Category struct {
	ID        string
	TenantIDs []string
	Name      string
	Slug      string
	Priority  int
}

func (c *Category) BelongsTo(tenantID string) bool { return contains(c.TenantIDs, tenantID) }

// Feature is a named switch enabled for a list of tenants.
type Feature struct {
	ID        string
	Name      string
	TenantIDs []string
}

// EnabledFor reports whether tenantID appears in the feature's list.
func (f *Feature) EnabledFor(tenantID string) bool { return contains(f.TenantIDs, tenantID) }

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
