package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/fallback"
	"github.com/yanizio/tenantcms/internal/feed"
	"github.com/yanizio/tenantcms/internal/site"
	"github.com/yanizio/tenantcms/internal/tenant"
)

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	st := a.svc.Status()
	body := map[string]any{"status": "ok", "snapshot_fresh": st.Fresh, "entries": st.Entries}
	if !st.SnapshotAt.IsZero() {
		body["snapshot_at"] = st.SnapshotAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) siteInfo(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	feats, err := a.svc.Features(r.Context(), t)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, siteJSON{
		ID: t.ID, Name: t.Name, Domain: t.Domain, Theme: t.Theme, Features: feats,
	})
}

func (a *API) listing(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	number := queryInt(r, "page", 1)
	perPage := min(queryInt(r, "per_page", 0), a.opts.MaxPerPage)

	l, err := a.svc.Listing(r.Context(), t, number, perPage)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListing(l))
}

func (a *API) popular(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	limit := min(queryInt(r, "limit", 5), a.opts.MaxPerPage)

	as, err := a.svc.Popular(r.Context(), t, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]itemJSON, 0, len(as))
	for i := range as {
		out = append(out, toItem(&as[i].Item, feed.KindArticle))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) item(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	out, err := a.svc.Item(r.Context(), t, chi.URLParam(r, "slug"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	switch out.Kind {
	case site.KindRedirect:
		code := http.StatusFound
		if out.Permanent {
			code = http.StatusPermanentRedirect
		}
		http.Redirect(w, r, out.Target, code)
	case site.KindRenderArticle:
		writeJSON(w, http.StatusOK, toArticle(out.Article, out.Related))
	case site.KindRenderGuide:
		writeJSON(w, http.StatusOK, toGuide(out.Guide))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (a *API) page(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	p, err := a.svc.Page(r.Context(), t, chi.URLParam(r, "slug"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, staticPageJSON{Slug: p.Slug, Title: p.Title, Body: p.Body})
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// fail maps content errors: every store tier failing is an upstream
// problem (502); anything else is ours (500).
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("host", r.Host), zap.String("path", r.URL.Path), zap.Error(err))

	var fe *fallback.FetchError
	if errors.As(err, &fe) {
		writeError(w, http.StatusBadGateway, "content store unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt parses a positive integer query parameter.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}
