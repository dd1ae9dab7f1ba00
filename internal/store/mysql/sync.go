package mysql

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/model"
	"github.com/yanizio/tenantcms/internal/record"
)

// Tables lists every table the mirror holds.
var Tables = []record.Table{
	record.TableTenants,
	record.TableArticles,
	record.TableGuides,
	record.TablePages,
	record.TableCategories,
	record.TableFeatures,
}

// Sync copies every table from src into dst, then records each tenant's
// view names so view queries keep working against the mirror.  Tables the
// source credentials cannot read are skipped.
func Sync(ctx context.Context, src record.Store, dst *Store) error {
	var tenants []record.Record
	for _, table := range Tables {
		recs, err := src.Query(ctx, table, record.Query{})
		if err != nil {
			if record.IsPermission(err) {
				zap.L().Warn("sync: table not readable, skipped", zap.String("table", string(table)))
				continue
			}
			return fmt.Errorf("sync %s: %w", table, err)
		}
		if err := dst.ReplaceTable(ctx, table, recs); err != nil {
			return fmt.Errorf("sync %s: %w", table, err)
		}
		zap.L().Info("sync: table copied", zap.String("table", string(table)), zap.Int("records", len(recs)))
		if table == record.TableTenants {
			tenants = recs
		}
	}

	for _, t := range model.MapAll(tenants, model.TenantFrom) {
		for table, view := range t.Views {
			if err := dst.PutView(ctx, table, view, t.ID); err != nil {
				return fmt.Errorf("sync view %s/%s: %w", table, view, err)
			}
		}
	}
	return nil
}
