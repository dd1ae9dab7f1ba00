// internal/tenant/resolver.go
//
// Host → tenant resolution.
//
// Context
// -------
// `Resolve` runs once per request, so the common case must be a single
// cache lookup:
//
//  1. Normalise the host and look for a fresh `host:<normalised>` entry.
//  2. Otherwise list tenants (snapshot, or the fallback engine when the
//     snapshot is unavailable) and match, in order, the exact host, the
//     dev-mode port alias, and in dev mode the host without its port.
//  3. No match → the default tenant (the configured one when active,
//     otherwise the lowest-ordinal active tenant).
//  4. Store the answer under the host key, so repeated requests for the
//     same host within TTL never rescan the tenant list.
//
// An unrecognised host is not an error; the default site is served.  The
// only failure is a deployment with no active tenant at all, reported as
// a *config.ConfigurationError wrapping ErrNoActiveTenant.
//
// Notes
// -----
//   - Inactive tenants never match, even on an exact domain.
//   - Tenants are scanned in Ordinal order, so overlapping domains resolve
//     deterministically.
package tenant

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/cache"
	"github.com/yanizio/tenantcms/internal/config"
	"github.com/yanizio/tenantcms/internal/metrics"
	"github.com/yanizio/tenantcms/internal/model"
)

// ErrNoActiveTenant means the store holds no active tenant.
var ErrNoActiveTenant = errors.New("no active tenant")

// Source lists tenants.  *content.Repository satisfies it.
type Source interface {
	Tenants(ctx context.Context) ([]model.Tenant, error)
}

// Resolver maps hosts to tenants.  Safe for concurrent use.
type Resolver struct {
	norm      Normalizer
	source    Source
	cache     *cache.Cache
	defaultID string
}

// NewResolver returns a Resolver that keeps its host entries in c.
func NewResolver(n Normalizer, src Source, c *cache.Cache) *Resolver {
	return &Resolver{norm: n, source: src, cache: c}
}

// WithDefault returns a copy of r that serves tenant id to unknown hosts
// while that tenant is active.  An empty id restores the lowest-ordinal
// rule.
func (r *Resolver) WithDefault(id string) *Resolver {
	cp := *r
	cp.defaultID = id
	return &cp
}

// Normalizer returns the resolver's host normaliser.
func (r *Resolver) Normalizer() Normalizer { return r.norm }

// Resolve returns the tenant serving rawHost.
func (r *Resolver) Resolve(ctx context.Context, rawHost string) (*model.Tenant, error) {
	host := r.norm.Normalize(rawHost)
	key := cache.Key("host", host)

	if t, ok := cache.Load[*model.Tenant](r.cache, key); ok {
		metrics.TenantResolutions.WithLabelValues("fast_path").Inc()
		return t, nil
	}

	return cache.Fetch(ctx, r.cache, key, func(ctx context.Context) (*model.Tenant, error) {
		active, err := r.active(ctx)
		if err != nil {
			return nil, err
		}
		if t := r.match(active, host); t != nil {
			metrics.TenantResolutions.WithLabelValues("matched").Inc()
			return t, nil
		}
		def := r.pickDefault(active)
		metrics.TenantResolutions.WithLabelValues("default").Inc()
		zap.L().Debug("unknown host, serving default tenant",
			zap.String("host", host), zap.String("tenant", def.ID))
		return def, nil
	})
}

// Known reports whether rawHost names an active tenant directly, by domain
// or dev-mode alias, rather than falling through to the default.
func (r *Resolver) Known(ctx context.Context, rawHost string) (bool, error) {
	active, err := r.active(ctx)
	if err != nil {
		return false, err
	}
	return r.match(active, r.norm.Normalize(rawHost)) != nil, nil
}

// Default returns the tenant served to unknown hosts: the configured
// default when it is active, else the lowest-ordinal active tenant.
func (r *Resolver) Default(ctx context.Context) (*model.Tenant, error) {
	active, err := r.active(ctx)
	if err != nil {
		return nil, err
	}
	return r.pickDefault(active), nil
}

func (r *Resolver) pickDefault(active []model.Tenant) *model.Tenant {
	if r.defaultID != "" {
		for i := range active {
			if active[i].ID == r.defaultID {
				return &active[i]
			}
		}
	}
	return &active[0]
}

// active returns a non-empty, ordered list of active tenants.
func (r *Resolver) active(ctx context.Context) ([]model.Tenant, error) {
	all, err := r.source.Tenants(ctx)
	if err != nil {
		metrics.TenantResolutions.WithLabelValues("error").Inc()
		return nil, err
	}
	active := model.ActiveTenants(all)
	if len(active) == 0 {
		metrics.TenantResolutions.WithLabelValues("error").Inc()
		return nil, &config.ConfigurationError{Key: "tenants", Err: ErrNoActiveTenant}
	}
	return active, nil
}

func (r *Resolver) match(active []model.Tenant, host string) *model.Tenant {
	for i := range active {
		if r.hasDomain(&active[i], host) {
			return &active[i]
		}
	}

	if alias, ok := r.norm.PortAlias(Port(host)); ok {
		for i := range active {
			for _, alt := range active[i].AltDomains {
				if r.norm.Normalize(alt) == alias {
					return &active[i]
				}
			}
		}
	}

	if r.norm.DevMode {
		if bare := Hostname(host); bare != host {
			for i := range active {
				if r.hasDomain(&active[i], bare) {
					return &active[i]
				}
			}
		}
	}
	return nil
}

// hasDomain compares host against the tenant's domains in normalised form,
// so rows holding "https://www.example.com/" still match.
func (r *Resolver) hasDomain(t *model.Tenant, host string) bool {
	if t.Domain != "" && r.norm.Normalize(t.Domain) == host {
		return true
	}
	return slices.ContainsFunc(t.AltDomains, func(d string) bool {
		return r.norm.Normalize(d) == host
	})
}
