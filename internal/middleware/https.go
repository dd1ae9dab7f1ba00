// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/tenant"
)

// HostChecker reports whether a host belongs to a configured tenant.
// *tenant.Resolver satisfies it.
type HostChecker interface {
	Known(ctx context.Context, rawHost string) (bool, error)
}

// ForceHTTPS wraps h.  If the request arrived over plain HTTP, the host is
// not a loopback name, and the host belongs to a known tenant, the wrapper
// issues a 308 Permanent Redirect to the HTTPS version of the same URL.
// Unknown hosts fall through; they are served the default tenant and must
// not be bounced to a TLS name no certificate covers.
func ForceHTTPS(hosts HostChecker, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secure(r) || loopback(r.Host) {
			h.ServeHTTP(w, r)
			return
		}

		known, err := hosts.Known(r.Context(), r.Host)
		if err != nil {
			zap.L().Debug("https check skipped", zap.String("host", r.Host), zap.Error(err))
		}
		if known {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// secure reports TLS on this hop or on a terminating proxy in front.
func secure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func loopback(host string) bool {
	switch tenant.Hostname(strings.ToLower(host)) {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	}
	return false
}
