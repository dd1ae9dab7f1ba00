// cmd/web/main.go
//
// tenantcms – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (conf/.env → conf/global.yaml → TCMS_ env, with
//     vault: references resolved).
//
//  2. Start the daily rotating logger (tees to console in a TTY) and the
//     OTLP tracer provider when enabled.
//
//  3. Open the configured record store (hosted API, MySQL mirror, or a
//     YAML fixture).
//
//  4. Build the content cache, its sweeper, the optional Redis snapshot
//     mirror, the repository, the host resolver, and the site façade.
//
//  5. Warm the snapshot and check for an active tenant.  A store with no
//     active tenant stops the process before it listens.
//
//  6. Serve the JSON API until SIGINT/SIGTERM, then drain.
//
// SIGHUP reloads configuration (log level only; the rest needs a restart)
// and drops every cached snapshot and host entry.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/cache"
	"github.com/yanizio/tenantcms/internal/config"
	"github.com/yanizio/tenantcms/internal/content"
	"github.com/yanizio/tenantcms/internal/fallback"
	"github.com/yanizio/tenantcms/internal/httpapi"
	"github.com/yanizio/tenantcms/internal/logger"
	"github.com/yanizio/tenantcms/internal/server"
	"github.com/yanizio/tenantcms/internal/site"
	"github.com/yanizio/tenantcms/internal/snapshot"
	"github.com/yanizio/tenantcms/internal/store"
	"github.com/yanizio/tenantcms/internal/tenant"
	"github.com/yanizio/tenantcms/internal/tracing"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	// Console logger until the file logger is up.
	boot, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("bootstrap logger: %v", err)
	}
	zap.ReplaceGlobals(boot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.S().Fatalw("tenantcms stopped", "err", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config, logger, tracing ─────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logOut, err := logger.New(logger.Options{
		Dir:   logger.Dir(cfg.Paths.Root, cfg.Log.Dir),
		Level: cfg.Log.Level,
		Tee:   runningInTTY(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Endpoint:     cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		ServiceName:  cfg.Tracing.ServiceName,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	//
	// ── 2.  Record store ────────────────────────────────────────────────
	//
	st, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	logOut.Infow("record store online", "backend", cfg.Store.Backend)

	//
	// ── 3.  Cache, mirror, repository, resolver ─────────────────────────
	//
	c := cache.New(cache.Options{TTL: cfg.Cache.TTL, MaxEntries: cfg.Cache.MaxEntries})
	c.StartEvictor(ctx, cfg.Cache.SweepInterval)

	var opts content.Options
	if cfg.Cache.RedisAddr != "" {
		rdb, err := snapshot.Connect(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			// The mirror only speeds up cold starts; run without it.
			logOut.Warnw("snapshot mirror unavailable", "addr", cfg.Cache.RedisAddr, "err", err)
		} else {
			defer rdb.Close()
			opts.Mirror = snapshot.NewMirror(rdb, cfg.Cache.RedisKey, cfg.Cache.TTL)
		}
	}

	repo := content.NewRepository(c, fallback.New(st, cfg.Store.TierTimeout), st, opts)
	resolver := tenant.NewResolver(tenant.Normalizer{
		DevMode:     cfg.Tenant.DevMode,
		PortAliases: cfg.Tenant.PortAliases,
	}, repo, c).WithDefault(cfg.Tenant.Default)
	svc := site.NewService(repo, resolver, site.Options{})

	// Warms the snapshot.  No active tenant is fatal; an unreachable store
	// is not.
	if err := svc.Ready(ctx); err != nil {
		return err
	}

	go watchHUP(ctx, svc)

	//
	// ── 4.  HTTP ────────────────────────────────────────────────────────
	//
	handler := httpapi.New(svc, httpapi.Options{ForceHTTPS: cfg.HTTP.ForceHTTPS})
	srv := server.New(cfg.HTTP.ListenAddr, otelhttp.NewHandler(handler, "http"), server.Timeouts{
		Read:     cfg.HTTP.ReadTimeout,
		Write:    cfg.HTTP.WriteTimeout,
		Idle:     cfg.HTTP.IdleTimeout,
		Shutdown: cfg.HTTP.ShutdownTimeout,
	})
	return srv.Run(ctx)
}

// watchHUP reloads configuration and invalidates the cache on SIGHUP.
func watchHUP(ctx context.Context, svc *site.Service) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}
		if err := config.Reload(); err != nil {
			zap.S().Errorw("config reload failed, keeping previous", "err", err)
		} else if err := logger.SetLevel(config.Get().Log.Level); err != nil {
			zap.S().Warnw("log level unchanged", "err", err)
		}
		svc.Invalidate()
		zap.S().Infow("cache invalidated on SIGHUP")
	}
}
