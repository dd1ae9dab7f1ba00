package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/routing"
)

func guidePaths(guides ...string) PathFunc {
	set := make(map[string]bool)
	for _, g := range guides {
		set[g] = true
	}
	return func(slug string) string {
		if set[slug] {
			return routing.GuidePath(slug)
		}
		return routing.ArticlePath(slug)
	}
}

func TestResolve_RedirectPrecedesPublishCheck(t *testing.T) {
	it := &model.Item{Published: false, RedirectStatus: "redirect", RedirectTarget: "other-slug"}

	got := Resolve(it, nil)
	assert.Equal(t, Redirect, got.State)
	assert.Equal(t, "/other-slug", got.Target)
	assert.True(t, got.Permanent)
}

func TestResolve_States(t *testing.T) {
	cases := []struct {
		name string
		item model.Item
		want State
	}{
		{"published", model.Item{Published: true}, Render},
		{"unpublished", model.Item{}, NotFound},
		{"status without target", model.Item{Published: true, RedirectStatus: "redirect"}, Render},
		{"target without status", model.Item{Published: false, RedirectTarget: "x"}, NotFound},
		{"unknown status", model.Item{Published: true, RedirectStatus: "draft", RedirectTarget: "x"}, Render},
		{"published redirect", model.Item{Published: true, RedirectStatus: "Redirect", RedirectTarget: "x"}, Redirect},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Resolve(&c.item, nil).State)
		})
	}
	assert.Equal(t, NotFound, Resolve(nil, nil).State)
}

func TestResolve_Targets(t *testing.T) {
	paths := guidePaths("best-tacos")

	got := Resolve(&model.Item{RedirectStatus: "302", RedirectTarget: "https://elsewhere.test/a?b=1"}, paths)
	assert.Equal(t, "https://elsewhere.test/a?b=1", got.Target)
	assert.False(t, got.Permanent)

	got = Resolve(&model.Item{RedirectStatus: "301", RedirectTarget: "best-tacos"}, paths)
	assert.Equal(t, "/guides/best-tacos", got.Target)

	got = Resolve(&model.Item{RedirectStatus: "redirect", RedirectTarget: " /guides/x/ "}, paths)
	assert.Equal(t, "/guides/x", got.Target)
}

func TestIsRedirectStatus(t *testing.T) {
	ok, perm := IsRedirectStatus(" PERMANENT ")
	assert.True(t, ok)
	assert.True(t, perm)

	ok, perm = IsRedirectStatus("temporary")
	assert.True(t, ok)
	assert.False(t, perm)

	ok, _ = IsRedirectStatus("")
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "redirect", Redirect.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "unevaluated", Unevaluated.String())
}
