// internal/routing/slug.go
//
// Slug and content-path helpers.
//
// Context
// -------
// Content rows carry a slug column that editors fill by hand.  When it is
// blank the mapper derives one from the title with MakeSlug, so every item
// stays addressable.  Public paths are built from slugs with BuildPath:
// articles live at `/<slug>`, guides at `/guides/<slug>`.
//
// Rules (MakeSlug)
// ----------------
//  1. Lower-case everything.
//  2. Any run of characters outside [a-z0-9] becomes one "-".
//  3. Leading and trailing "-" are trimmed.
//  4. At most MaxSlugLen bytes; a dash left at the cut is trimmed too.
//  5. An empty result is "" (the caller decides whether that is fatal).
//
// Notes
// -----
//   - No transliteration; titles are English.
//   - MakeSlug(MakeSlug(s)) == MakeSlug(s).
package routing

import (
	"net/url"
	"strings"
)

// MaxSlugLen caps generated slugs.
const MaxSlugLen = 100

// Path prefixes per content kind.
const (
	ArticlePrefix = ""
	GuidePrefix   = "guides"
	PagePrefix    = "p"
)

// MakeSlug converts title to lower-kebab ASCII.
func MakeSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > MaxSlugLen {
		slug = strings.TrimRight(slug[:MaxSlugLen], "-")
	}
	return slug
}

// BuildPath joins parent and slug with exactly one leading slash and no
// duplicate separators.
func BuildPath(parent, slug string) string {
	parent = strings.Trim(parent, "/")
	slug = strings.Trim(slug, "/")

	switch {
	case parent == "" && slug == "":
		return "/"
	case parent == "":
		return "/" + slug
	case slug == "":
		return "/" + parent
	default:
		return "/" + parent + "/" + slug
	}
}

// ArticlePath returns the public path of an article.
func ArticlePath(slug string) string { return BuildPath(ArticlePrefix, slug) }

// GuidePath returns the public path of a guide.
func GuidePath(slug string) string { return BuildPath(GuidePrefix, slug) }

// PagePath returns the public path of a static page.
func PagePath(slug string) string { return BuildPath(PagePrefix, slug) }

// IsAbsoluteURL reports whether target carries its own scheme and host
// (or is protocol-relative), and must therefore be used verbatim.
func IsAbsoluteURL(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme != "" && u.Host != ""
}
