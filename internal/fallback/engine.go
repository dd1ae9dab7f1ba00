package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/metrics"
	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/record"
)

// DefaultTierTimeout bounds a single tier's query.
const DefaultTierTimeout = 8 * time.Second

var tracer = otel.Tracer("github.com/yanizio/tenantcms/internal/fallback")

// FetchError is returned when every tier failed.
type FetchError struct {
	Table    record.Table
	Op       string
	TenantID string
	Errs     []error // one per failed tier, in tier order
}

func (e *FetchError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	tenant := e.TenantID
	if tenant == "" {
		tenant = "*"
	}
	return fmt.Sprintf("fallback: %s %s for tenant %s: %s",
		e.Op, e.Table, tenant, strings.Join(msgs, "; "))
}

func (e *FetchError) Unwrap() []error { return e.Errs }

// Engine runs strategies in order.  It never caches; callers own that.
type Engine struct {
	tiers       []Strategy
	tierTimeout time.Duration
}

// New returns an Engine with the view → formula → scan chain.
func New(store record.Store, tierTimeout time.Duration) *Engine {
	return NewWithStrategies(tierTimeout,
		ViewStrategy{Store: store},
		FormulaStrategy{Store: store},
		ScanStrategy{Store: store},
	)
}

// NewWithStrategies returns an Engine with a custom chain.  The last
// strategy should be one whose empty answer is authoritative.
func NewWithStrategies(tierTimeout time.Duration, tiers ...Strategy) *Engine {
	if tierTimeout <= 0 {
		tierTimeout = DefaultTierTimeout
	}
	return &Engine{tiers: tiers, tierTimeout: tierTimeout}
}

// Fetch returns the records of table that belong to tenant and satisfy c.
//
// The first tier to return rows wins.  Empty results move on to the next
// tier.  When at least one tier completed and none returned rows, the
// answer is a legitimate empty slice.  When every tier failed with a
// permission error the table is treated as unreadable and an empty slice
// is returned.  Otherwise a *FetchError carries each tier's error.
func (e *Engine) Fetch(ctx context.Context, table record.Table, tenant *model.Tenant, c Constraints) ([]record.Record, error) {
	req := Request{Table: table, Tenant: tenant, Constraints: c}
	log := zap.L().With(zap.String("table", string(table)), zap.String("tenant", req.tenantID()))

	var (
		errs      []error
		completed bool
	)
	for _, s := range e.tiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res := e.try(ctx, s, req)
		metrics.TierOutcomes.WithLabelValues(string(table), s.Name(), res.Outcome.String()).Inc()

		switch res.Outcome {
		case Found:
			if completed || len(errs) > 0 {
				log.Debug("fallback tier answered", zap.String("tier", s.Name()))
			}
			return limit(res.Records, c.MaxRecords), nil
		case Inconclusive:
			completed = true
		case Failed:
			log.Warn("fallback tier failed", zap.String("tier", s.Name()), zap.Error(res.Err))
			errs = append(errs, fmt.Errorf("%s tier: %w", s.Name(), res.Err))
		}
	}

	if completed {
		return []record.Record{}, nil
	}
	if len(errs) > 0 && allPermission(errs) {
		log.Warn("table not readable, returning empty result")
		return []record.Record{}, nil
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no applicable strategy"))
	}
	return nil, &FetchError{Table: table, Op: "fetch", TenantID: req.tenantID(), Errs: errs}
}

func (e *Engine) try(ctx context.Context, s Strategy, req Request) Result {
	ctx, span := tracer.Start(ctx, "fallback."+s.Name())
	defer span.End()
	span.SetAttributes(
		attribute.String("table", string(req.Table)),
		attribute.String("tenant", req.tenantID()),
	)

	tctx, cancel := context.WithTimeout(ctx, e.tierTimeout)
	defer cancel()
	res := s.Try(tctx, req)

	span.SetAttributes(attribute.String("outcome", res.Outcome.String()))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}

func allPermission(errs []error) bool {
	for _, err := range errs {
		if !record.IsPermission(err) {
			return false
		}
	}
	return true
}

func limit(recs []record.Record, n int) []record.Record {
	if n > 0 && len(recs) > n {
		return recs[:n]
	}
	return recs
}
