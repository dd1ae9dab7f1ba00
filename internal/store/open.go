// Package store picks the record.Store backend named in configuration.
package store

import (
	"context"
	"fmt"

	"github.com/yanizio/tenantcms/internal/config"
	"github.com/yanizio/tenantcms/internal/database"
	"github.com/yanizio/tenantcms/internal/record"
	"github.com/yanizio/tenantcms/internal/store/airtable"
	"github.com/yanizio/tenantcms/internal/store/fixture"
	"github.com/yanizio/tenantcms/internal/store/mysql"
)

// Closer releases backend resources.
type Closer func() error

func noop() error { return nil }

// Open returns the configured backend.
func Open(ctx context.Context, cfg config.Store) (record.Store, Closer, error) {
	switch cfg.Backend {
	case "http":
		s, err := OpenHTTP(cfg)
		return s, noop, err

	case "mysql":
		s, closeFn, err := OpenMySQL(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, closeFn, nil

	case "fixture":
		s, err := fixture.Load(cfg.FixturePath)
		if err != nil {
			return nil, nil, &config.ConfigurationError{Key: "store.fixture_path", Err: err}
		}
		return s, noop, nil
	}
	return nil, nil, &config.ConfigurationError{Key: "store.backend", Err: fmt.Errorf("unknown backend %q", cfg.Backend)}
}

// OpenHTTP returns the hosted-API store.
func OpenHTTP(cfg config.Store) (*airtable.Store, error) {
	s, err := airtable.New(airtable.Config{
		BaseURL:    cfg.BaseURL,
		BaseID:     cfg.BaseID,
		APIKey:     cfg.APIKey,
		RatePerSec: cfg.RatePerSec,
		Burst:      cfg.Burst,
		Retries:    cfg.Retries,
		Timeout:    cfg.TierTimeout,
	})
	if err != nil {
		return nil, &config.ConfigurationError{Key: "store.api_key", Err: err}
	}
	return s, nil
}

// OpenMySQL connects to the SQL mirror.
func OpenMySQL(ctx context.Context, cfg config.Store) (*mysql.Store, Closer, error) {
	if cfg.MySQLDSN == "" {
		return nil, nil, &config.ConfigurationError{Key: "store.mysql_dsn", Err: config.ErrMissing}
	}
	db, err := database.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("store: mysql: %w", err)
	}
	return mysql.New(db), db.Close, nil
}
