package middleware

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/tenant"
)

type hostSet map[string]bool

func (h hostSet) Known(_ context.Context, host string) (bool, error) {
	return h[tenant.Normalizer{}.Normalize(host)], nil
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(hostSet{"first.test": true}, ok)

	cases := []struct {
		name   string
		host   string
		mutate func(*http.Request)
		code   int
	}{
		{"known host redirects", "first.test", nil, http.StatusPermanentRedirect},
		{"unknown host passes", "other.test", nil, http.StatusTeapot},
		{"loopback passes", "localhost:3001", nil, http.StatusTeapot},
		{"tls passes", "first.test", func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, http.StatusTeapot},
		{"proxy https passes", "first.test", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }, http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/api/content?page=2", nil)
			if tc.mutate != nil {
				tc.mutate(req)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusPermanentRedirect {
				assert.Equal(t, "https://first.test/api/content?page=2", rec.Header().Get("Location"))
			}
		})
	}
}

func TestSecurity(t *testing.T) {
	h := Security(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://first.test/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "https://first.test/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

type resolverFunc func(ctx context.Context, host string) (*model.Tenant, error)

func (f resolverFunc) Resolve(ctx context.Context, host string) (*model.Tenant, error) {
	return f(ctx, host)
}

func TestTenant(t *testing.T) {
	var seen *model.Tenant
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = tenant.FromContext(r.Context())
	})

	h := Tenant(resolverFunc(func(_ context.Context, host string) (*model.Tenant, error) {
		return &model.Tenant{ID: "t1", Domain: host}, nil
	}), next)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://first.test/", nil))
	require.NotNil(t, seen)
	assert.Equal(t, "t1", seen.ID)

	h = Tenant(resolverFunc(func(context.Context, string) (*model.Tenant, error) {
		return nil, errors.New("no active tenant")
	}), next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://first.test/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
