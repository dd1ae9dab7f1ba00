package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Snapshot is one internally-consistent bulk fetch of every tenant's
// content.  It is built once by NewSnapshot and never mutated afterwards.
type Snapshot struct {
	Tenants    []Tenant
	Articles   map[string][]Article  // tenant id → articles in fetch order
	Guides     map[string][]Guide    // tenant id → guides in fetch order
	Pages      map[string][]Page     // tenant id → pages
	Categories map[string][]Category // tenant id → assigned categories
	Features   []Feature
	TakenAt    time.Time
}

// SlugConflict names a slug used by both an Article and a Guide of the
// same tenant.
type SlugConflict struct {
	TenantID  string
	Slug      string
	ArticleID string
	GuideID   string
}

// SlugConflictError lists every conflict found while building a Snapshot.
type SlugConflictError struct {
	Conflicts []SlugConflict
}

func (e *SlugConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s/%s (article %s, guide %s)",
			c.TenantID, c.Slug, c.ArticleID, c.GuideID))
	}
	return "slug shared by article and guide: " + strings.Join(parts, "; ")
}

// CheckSlugs verifies that, per tenant, no Article and Guide share a slug.
// Slugs compare case-insensitively, the way lookups match them.  It
// returns nil or a *SlugConflictError.
func CheckSlugs(articles []Article, guides []Guide) error {
	type key struct{ tenant, slug string }
	seen := make(map[key]string, len(articles))
	for _, a := range articles {
		for _, t := range a.TenantIDs {
			seen[key{t, strings.ToLower(a.Slug)}] = a.ID
		}
	}

	var conflicts []SlugConflict
	for _, g := range guides {
		for _, t := range g.TenantIDs {
			if aid, ok := seen[key{t, strings.ToLower(g.Slug)}]; ok && g.Slug != "" {
				conflicts = append(conflicts, SlugConflict{
					TenantID: t, Slug: g.Slug, ArticleID: aid, GuideID: g.ID,
				})
			}
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return &SlugConflictError{Conflicts: conflicts}
}

// NewSnapshot groups flat, tenant-agnostic rows by tenant.  When a guide's
// slug collides with an article of the same tenant the guide is left out
// of that tenant's list, and the returned error describes the conflict.
// The snapshot is usable in both cases.
func NewSnapshot(
	tenants []Tenant,
	articles []Article,
	guides []Guide,
	pages []Page,
	categories []Category,
	features []Feature,
	takenAt time.Time,
) (*Snapshot, error) {
	s := &Snapshot{
		Tenants:    tenants,
		Articles:   make(map[string][]Article),
		Guides:     make(map[string][]Guide),
		Pages:      make(map[string][]Page),
		Categories: make(map[string][]Category),
		Features:   features,
		TakenAt:    takenAt,
	}

	err := CheckSlugs(articles, guides)
	var drop map[string]map[string]bool // tenant → guide id
	var sce *SlugConflictError
	if errors.As(err, &sce) {
		drop = make(map[string]map[string]bool)
		for _, c := range sce.Conflicts {
			if drop[c.TenantID] == nil {
				drop[c.TenantID] = make(map[string]bool)
			}
			drop[c.TenantID][c.GuideID] = true
		}
	}

	for _, a := range articles {
		for _, t := range a.TenantIDs {
			s.Articles[t] = append(s.Articles[t], a)
		}
	}
	for _, g := range guides {
		for _, t := range g.TenantIDs {
			if drop[t][g.ID] {
				continue
			}
			s.Guides[t] = append(s.Guides[t], g)
		}
	}
	for _, p := range pages {
		for _, t := range p.TenantIDs {
			s.Pages[t] = append(s.Pages[t], p)
		}
	}
	for _, c := range categories {
		for _, t := range c.TenantIDs {
			s.Categories[t] = append(s.Categories[t], c)
		}
	}
	for t := range s.Categories {
		SortCategories(s.Categories[t])
	}
	return s, err
}

// Tenant returns the tenant with id, or nil.
func (s *Snapshot) Tenant(id string) *Tenant {
	for i := range s.Tenants {
		if s.Tenants[i].ID == id {
			return &s.Tenants[i]
		}
	}
	return nil
}

// ActiveTenants returns active tenants ordered by Ordinal, then id.
func (s *Snapshot) ActiveTenants() []Tenant { return ActiveTenants(s.Tenants) }

// ActiveTenants filters ts to active tenants ordered by Ordinal, then id.
func ActiveTenants(ts []Tenant) []Tenant {
	out := make([]Tenant, 0, len(ts))
	for _, t := range ts {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FeaturesFor returns the names of features enabled for tenantID.
func (s *Snapshot) FeaturesFor(tenantID string) []string {
	var names []string
	for i := range s.Features {
		if s.Features[i].EnabledFor(tenantID) {
			names = append(names, s.Features[i].Name)
		}
	}
	return names
}

// SortCategories orders by Priority ascending, then Name.
func SortCategories(cs []Category) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Priority != cs[j].Priority {
			return cs[i].Priority < cs[j].Priority
		}
		return cs[i].Name < cs[j].Name
	})
}
