// context.go carries the resolved tenant through a request.  The HTTP
// layer resolves once per request and handlers read it back with
// FromContext.
package tenant

import (
	"context"

	"github.com/yanizio/tenantcms/internal/model"
)

type ctxKey struct{}

// WithTenant returns a copy of ctx holding t.
func WithTenant(ctx context.Context, t *model.Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the tenant stored by WithTenant, or nil.
func FromContext(ctx context.Context) *model.Tenant {
	t, _ := ctx.Value(ctxKey{}).(*model.Tenant)
	return t
}
