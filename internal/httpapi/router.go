// internal/httpapi/router.go
//
// JSON HTTP surface over site.Service.
//
// Routes
// ------
//
//	GET /healthz                  snapshot freshness (no tenant needed)
//	GET /metrics                  Prometheus
//	GET /api/site                 resolved tenant + enabled features
//	GET /api/content              merged feed, category-grouped (?page=&per_page=)
//	GET /api/content/popular      popular articles (?limit=)
//	GET /api/content/{slug}       article or guide; 308/302 redirect; 404
//	GET /api/pages/{slug}         static page; 404
//
// Every /api route runs behind middleware.Tenant, so handlers read the
// tenant from the request context and never resolve hosts themselves.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/middleware"
	"github.com/yanizio/tenantcms/internal/site"
)

// Options tunes the router.
type Options struct {
	ForceHTTPS bool
	MaxPerPage int // upper bound for ?per_page; 0 → 100
}

// API holds handler dependencies.
type API struct {
	svc  *site.Service
	opts Options
}

// New returns the root handler.
func New(svc *site.Service, opts Options) http.Handler {
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = 100
	}
	a := &API{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, requestLog, chimw.Recoverer, middleware.Security)

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(func(next http.Handler) http.Handler { return middleware.Tenant(svc.Resolver(), next) })
		api.Get("/site", a.siteInfo)
		api.Get("/content", a.listing)
		api.Get("/content/popular", a.popular)
		api.Get("/content/{slug}", a.item)
		api.Get("/pages/{slug}", a.page)
	})

	if opts.ForceHTTPS {
		return middleware.ForceHTTPS(svc.Resolver(), r)
	}
	return r
}

// requestLog writes one debug line per request.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("host", r.Host),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())))
	})
}
