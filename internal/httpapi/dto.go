package httpapi

import (
	"time"

	"github.com/yanizio/tenantcms/internal/feed"
	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/routing"
)

// Wire shapes.  Internal ids of other tenants never leave the process:
// tenant lists are dropped from every item.

type imageJSON struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type itemJSON struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Slug        string      `json:"slug"`
	Path        string      `json:"path"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary,omitempty"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	Images      []imageJSON `json:"images,omitempty"`
}

type articleJSON struct {
	itemJSON
	Body    string     `json:"body,omitempty"`
	Popular bool       `json:"popular,omitempty"`
	Related []itemJSON `json:"related,omitempty"`
}

type entryJSON struct {
	Position   int    `json:"position"`
	BusinessID string `json:"business_id,omitempty"`
	Heading    string `json:"heading,omitempty"`
	Note       string `json:"note,omitempty"`
}

type guideJSON struct {
	itemJSON
	Intro   string      `json:"intro,omitempty"`
	Entries []entryJSON `json:"entries"`
}

type pageJSON struct {
	Items   []itemJSON `json:"items"`
	Number  int        `json:"number"`
	PerPage int        `json:"per_page"`
	Total   int        `json:"total"`
	Pages   int        `json:"pages"`
	HasPrev bool       `json:"has_prev"`
	HasNext bool       `json:"has_next"`
}

type groupJSON struct {
	Category categoryJSON `json:"category"`
	Page     pageJSON     `json:"page"`
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type listingJSON struct {
	Unified bool        `json:"unified"`
	Feed    *pageJSON   `json:"feed,omitempty"`
	Groups  []groupJSON `json:"groups,omitempty"`
}

type siteJSON struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Domain   string         `json:"domain"`
	Theme    map[string]any `json:"theme,omitempty"`
	Features []string       `json:"features"`
}

type staticPageJSON struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// -----------------------------------------------------------------------------
// converters
// -----------------------------------------------------------------------------

func toItem(it *model.Item, kind feed.Kind) itemJSON {
	out := itemJSON{
		ID:          it.ID,
		Kind:        kind.String(),
		Slug:        it.Slug,
		Title:       it.Title,
		Summary:     it.Summary,
		PublishedAt: it.PublishedAt,
		UpdatedAt:   it.UpdatedAt,
		Categories:  it.CategoryIDs,
	}
	if kind == feed.KindGuide {
		out.Path = routing.GuidePath(it.Slug)
	} else {
		out.Path = routing.ArticlePath(it.Slug)
	}
	for _, img := range it.Images {
		out.Images = append(out.Images, imageJSON{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	return out
}

func toArticle(a *model.Article, related []model.Article) articleJSON {
	out := articleJSON{itemJSON: toItem(&a.Item, feed.KindArticle), Body: a.Body, Popular: a.Popular}
	for i := range related {
		out.Related = append(out.Related, toItem(&related[i].Item, feed.KindArticle))
	}
	return out
}

func toGuide(g *model.Guide) guideJSON {
	out := guideJSON{itemJSON: toItem(&g.Item, feed.KindGuide), Intro: g.Intro, Entries: []entryJSON{}}
	for _, e := range g.Entries {
		out.Entries = append(out.Entries, entryJSON{
			Position: e.Position, BusinessID: e.BusinessID, Heading: e.Heading, Note: e.Note,
		})
	}
	return out
}

func toItems(items []feed.Item) []itemJSON {
	out := make([]itemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, toItem(it.Common(), it.Kind))
	}
	return out
}

func toPage(p feed.Page) pageJSON {
	return pageJSON{
		Items:   toItems(p.Items),
		Number:  p.Number,
		PerPage: p.PerPage,
		Total:   p.Total,
		Pages:   p.Pages,
		HasPrev: p.HasPrev(),
		HasNext: p.HasNext(),
	}
}

func toListing(l feed.Listing) listingJSON {
	if l.Unified {
		p := toPage(l.Feed)
		return listingJSON{Unified: true, Feed: &p}
	}
	out := listingJSON{Groups: make([]groupJSON, 0, len(l.Groups))}
	for _, g := range l.Groups {
		out.Groups = append(out.Groups, groupJSON{
			Category: categoryJSON{ID: g.Category.ID, Name: g.Category.Name, Slug: g.Category.Slug},
			Page:     toPage(g.Page),
		})
	}
	return out
}
