package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/tenant"
)

// TenantResolver maps a raw Host header to a tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, rawHost string) (*model.Tenant, error)
}

// Tenant resolves the request host once and stores the tenant in the
// request context for tenant.FromContext.  A resolution failure means the
// deployment has no usable tenant, so the request gets 503.
func Tenant(res TenantResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := res.Resolve(r.Context(), r.Host)
		if err != nil {
			zap.L().Error("tenant resolution failed", zap.String("host", r.Host), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), t)))
	})
}
