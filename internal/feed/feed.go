// internal/feed/feed.go
//
// Listing assembly for one tenant.
//
// Context
// -------
// Articles and Guides are stored apart but listed together.  `Merge`
// interleaves them by publish date, `Paginate` slices the result, and
// `Group` partitions it by the categories assigned to the tenant.
//
// Ordering
// --------
// Merge is a stable sort on publish date, newest first, undated last.
// Ties keep input order: articles (in fetch order) before guides (in
// fetch order).  No secondary key is invented.
//
// Grouping
// --------
// The tenant's assigned categories are the only groups.  Content may
// reference categories assigned elsewhere; those references are reported
// in Listing.Unassigned and otherwise ignored.  A tenant with one or no
// assigned category gets a single unified feed instead.
package feed

import (
	"sort"

	"github.com/yanizio/tenantcms/internal/model"
)

// Kind tells Articles and Guides apart inside a merged feed.
type Kind int

const (
	KindArticle Kind = iota
	KindGuide
)

func (k Kind) String() string {
	if k == KindGuide {
		return "guide"
	}
	return "article"
}

// Item is one element of a merged feed.  Exactly one of Article or Guide
// is set, matching Kind.
type Item struct {
	Kind    Kind
	Article *model.Article
	Guide   *model.Guide
}

// Common returns the fields shared by both kinds.
func (i Item) Common() *model.Item {
	if i.Kind == KindGuide {
		return &i.Guide.Item
	}
	return &i.Article.Item
}

// Merge combines articles and guides, newest first.
func Merge(articles []model.Article, guides []model.Guide) []Item {
	out := make([]Item, 0, len(articles)+len(guides))
	for i := range articles {
		out = append(out, Item{Kind: KindArticle, Article: &articles[i]})
	}
	for i := range guides {
		out = append(out, Item{Kind: KindGuide, Guide: &guides[i]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].Common(), out[j].Common())
	})
	return out
}

// newer orders dated items before undated ones, then by date descending.
func newer(a, b *model.Item) bool {
	switch {
	case a.PublishedAt == nil:
		return false
	case b.PublishedAt == nil:
		return true
	}
	return a.PublishedAt.After(*b.PublishedAt)
}

// -----------------------------------------------------------------------------
// Pagination
// -----------------------------------------------------------------------------

// Page is one slice of a feed.  Number is 1-based.
type Page struct {
	Items   []Item
	Number  int
	PerPage int
	Total   int
	Pages   int
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.Pages }

// Paginate returns page number of items.  number < 1 is treated as 1;
// perPage <= 0 puts everything on one page.  A page past the end is empty.
func Paginate(items []Item, number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	total := len(items)
	if perPage <= 0 {
		perPage = max(total, 1)
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	p := Page{Number: number, PerPage: perPage, Total: total, Pages: pages, Items: []Item{}}

	// Compare page numbers before multiplying; number comes from the query
	// string and (number-1)*perPage can overflow.
	if number > pages {
		return p
	}
	start := (number - 1) * perPage
	p.Items = items[start : start+min(perPage, total-start)]
	return p
}

// -----------------------------------------------------------------------------
// Category grouping
// -----------------------------------------------------------------------------

// Group is one assigned category and its page of content.
type Group struct {
	Category model.Category
	Page     Page
}

// Listing is the result of Categorize.  When Unified is set, Feed holds
// every item and Groups is empty.
type Listing struct {
	Unified    bool
	Feed       Page
	Groups     []Group
	Unassigned []string // category ids referenced by content but not assigned to the tenant
}

// Categorize builds the listing for a merged feed.  assigned must be the
// tenant's assigned categories; they are ordered by priority here.
func Categorize(items []Item, assigned []model.Category, number, perPage int) Listing {
	cats := append([]model.Category(nil), assigned...)
	model.SortCategories(cats)

	known := make(map[string]bool, len(cats))
	for _, c := range cats {
		known[c.ID] = true
	}

	var l Listing
	seen := make(map[string]bool)
	for _, it := range items {
		for _, id := range it.Common().CategoryIDs {
			if !known[id] && !seen[id] {
				seen[id] = true
				l.Unassigned = append(l.Unassigned, id)
			}
		}
	}

	if len(cats) <= 1 {
		l.Unified = true
		l.Feed = Paginate(items, number, perPage)
		return l
	}

	l.Groups = make([]Group, 0, len(cats))
	for _, c := range cats {
		var members []Item
		for _, it := range items {
			if hasCategory(it.Common(), c.ID) {
				members = append(members, it)
			}
		}
		l.Groups = append(l.Groups, Group{Category: c, Page: Paginate(members, number, perPage)})
	}
	return l
}

func hasCategory(it *model.Item, id string) bool {
	for _, c := range it.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Popular
// -----------------------------------------------------------------------------

// Popular returns the tenant's published popular articles, newest first,
// at most limit (limit <= 0 means no cap).
func Popular(articles []model.Article, tenantID string, limit int) []model.Article {
	out := make([]model.Article, 0)
	for _, a := range articles {
		if a.Popular && a.Published && a.BelongsTo(tenantID) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(&out[i].Item, &out[j].Item) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
