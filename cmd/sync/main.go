// cmd/sync/main.go
//
// Copies every table of the hosted content base into the MySQL mirror.
//
// Run from cron (nightly is typical).  Reads the same configuration as
// cmd/web; `store.base_id`, `store.api_key`, and `store.mysql_dsn` must
// all be set, whatever `store.backend` says.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/config"
	"github.com/yanizio/tenantcms/internal/logger"
	"github.com/yanizio/tenantcms/internal/store"
	"github.com/yanizio/tenantcms/internal/store/mysql"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "abort the sync after this long")
	flag.Parse()

	boot, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("bootstrap logger: %v", err)
	}
	zap.ReplaceGlobals(boot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx); err != nil {
		zap.S().Errorw("sync failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logOut, err := logger.New(logger.Options{
		Dir:   logger.Dir(cfg.Paths.Root, cfg.Log.Dir),
		Level: cfg.Log.Level,
		Tee:   true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	src, err := store.OpenHTTP(cfg.Store)
	if err != nil {
		return err
	}
	dst, closeDB, err := store.OpenMySQL(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeDB() }()

	start := time.Now()
	if err := mysql.Sync(ctx, src, dst); err != nil {
		return err
	}
	logOut.Infow("sync complete", "took", time.Since(start))
	return nil
}
