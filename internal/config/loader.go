// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `TCMS_`, where `__` maps to "."
     (e.g., `TCMS_STORE__API_KEY → store.api_key`).

String values of the form `vault:<mount>/<path>#<key>` are then replaced
by the secret they point at.  The merged tree is unmarshalled over
`Defaults()`, validated, enriched with the runtime root path, and cached
in an `atomic.Pointer` for lock-free reads.  `Reload()` calls `Load()`
again and swaps the pointer only on success, so a broken edit on SIGHUP
leaves the running config in place.

Instrumentation
---------------
  - DEBUG: root discovery, YAML read, vault resolution.
  - ERROR: YAML parse, env overlay, unmarshal, validation failures.
  - INFO:  final "config loaded" with key highlights.
  - Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/tenantcms/internal/vault"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "TCMS_"

var current atomic.Pointer[Config]

// SecretSource resolves one key of a KV secret.  *vault.Client satisfies
// it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// Options tunes a single Load.  The zero value discovers the root and
// dials Vault only if some value references it.
type Options struct {
	Root    string
	Secrets SecretSource
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves TCMS_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads every layer with default options and caches the result.
func Load() (*Config, error) { return LoadWith(context.Background(), Options{}) }

// LoadWith is Load with explicit options.
func LoadWith(ctx context.Context, opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: TCMS_STORE__API_KEY → store.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, opts.Secrets); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"store", cfg.Store.Backend,
		"cache_ttl", cfg.Cache.TTL,
		"dev_mode", cfg.Tenant.DevMode,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault values ────────────────────────────────*/

// resolveSecrets replaces every `vault:` string in k.  The Vault client is
// only dialled when at least one such value exists.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, src SecretSource) error {
	var refs []string
	for _, key := range k.Keys() {
		if s, ok := k.Get(key).(string); ok && strings.HasPrefix(s, vault.Prefix) {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	if src == nil {
		cli, err := vault.New(ctx, zap.S().Named("vault"))
		if err != nil {
			return &ConfigurationError{Key: refs[0], Err: err}
		}
		src = cli
	}

	for _, key := range refs {
		path, field, err := vault.ParseRef(k.String(key))
		if err != nil {
			return &ConfigurationError{Key: key, Err: err}
		}
		val, err := src.GetKV(ctx, path, field, 0)
		if err != nil {
			return &ConfigurationError{Key: key, Err: err}
		}
		if err := k.Set(key, val); err != nil {
			return &ConfigurationError{Key: key, Err: err}
		}
		zap.S().Debugw("config value resolved from vault", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last successfully loaded Config, or nil.
func Get() *Config { return current.Load() }

// Reload re-reads every layer.  On failure the previous Config stays.
func Reload() error { _, err := Load(); return err }
