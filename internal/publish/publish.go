// internal/publish/publish.go
//
// Render / redirect / not-found decision for one content item.
//
// Context
// -------
// Every item lookup ends here.  The checks run in a fixed order and the
// first that applies wins:
//
//  1. Redirect  when the redirect status names a redirect and a target is
//     set.  The published flag is not consulted, so a retired, unpublished
//     item keeps forwarding visitors.
//  2. NotFound  when the item is unpublished.
//  3. Render    otherwise.
//
// Targets that are absolute URLs pass through verbatim.  Site-relative
// paths ("/guides/x") pass through cleaned.  Bare slugs are turned into a
// path by the caller's PathFunc, which knows whether the slug names an
// article or a guide.
//
// Resolve is a pure function of the item's fields.
package publish

import (
	"strings"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/routing"
)

// State is the terminal state of one evaluation.
type State int

const (
	Unevaluated State = iota
	Redirect
	NotFound
	Render
)

func (s State) String() string {
	switch s {
	case Redirect:
		return "redirect"
	case NotFound:
		return "not_found"
	case Render:
		return "render"
	}
	return "unevaluated"
}

// Outcome is the result of Resolve.  Target and Permanent are set only in
// the Redirect state.
type Outcome struct {
	State     State
	Target    string
	Permanent bool
}

// PathFunc maps a bare slug to a site path.
type PathFunc func(slug string) string

// redirectStatuses lists the accepted status values and whether each is
// permanent.  Matching is case-insensitive.
var redirectStatuses = map[string]bool{
	"redirect":  true,
	"permanent": true,
	"301":       true,
	"308":       true,
	"temporary": false,
	"302":       false,
	"307":       false,
}

// IsRedirectStatus reports whether status names a redirect, and whether it
// is permanent.
func IsRedirectStatus(status string) (redirect, permanent bool) {
	permanent, redirect = redirectStatuses[strings.ToLower(strings.TrimSpace(status))]
	return redirect, permanent
}

// Resolve evaluates it.  A nil paths defaults to routing.ArticlePath.
func Resolve(it *model.Item, paths PathFunc) Outcome {
	if it == nil {
		return Outcome{State: NotFound}
	}
	if paths == nil {
		paths = routing.ArticlePath
	}

	target := strings.TrimSpace(it.RedirectTarget)
	if ok, permanent := IsRedirectStatus(it.RedirectStatus); ok && target != "" {
		return Outcome{State: Redirect, Target: Target(target, paths), Permanent: permanent}
	}
	if !it.Published {
		return Outcome{State: NotFound}
	}
	return Outcome{State: Render}
}

// Target resolves a redirect target to a URL or path.
func Target(target string, paths PathFunc) string {
	switch {
	case routing.IsAbsoluteURL(target):
		return target
	case strings.HasPrefix(target, "/"):
		return routing.BuildPath("", target)
	}
	return paths(target)
}
