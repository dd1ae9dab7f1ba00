package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644))
	return root
}

type stubSecrets map[string]string

func (s stubSecrets) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := s[path+"#"+key]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

const baseYAML = `
http:
  listen_addr: ":9090"
store:
  backend: http
  base_id: appXYZ
  api_key: key123
cache:
  ttl: 6h
tenant:
  dev_mode: true
  port_aliases:
    "3001": "localhost:3001"
`

func TestLoad_LayersAndDefaults(t *testing.T) {
	root := writeRoot(t, baseYAML)
	t.Setenv("TCMS_STORE__RATE_PER_SEC", "2.5")

	cfg, err := LoadWith(context.Background(), Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.ListenAddr)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Cache.MaxEntries)
	assert.Equal(t, 2.5, cfg.Store.RatePerSec)
	assert.Equal(t, 3, cfg.Store.Retries)
	assert.True(t, cfg.Tenant.DevMode)
	assert.Equal(t, "localhost:3001", cfg.Tenant.PortAliases["3001"])
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestLoad_MissingCredentials(t *testing.T) {
	root := writeRoot(t, `
store:
  backend: http
  base_id: appXYZ
`)
	_, err := LoadWith(context.Background(), Options{Root: root})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "store.api_key", ce.Key)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoad_BackendSpecificCredentials(t *testing.T) {
	root := writeRoot(t, `
store:
  backend: mysql
`)
	_, err := LoadWith(context.Background(), Options{Root: root})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "store.mysql_dsn", ce.Key)
}

func TestLoad_TagFailureNamesKey(t *testing.T) {
	root := writeRoot(t, baseYAML+`
log:
  level: loud
`)
	_, err := LoadWith(context.Background(), Options{Root: root})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "log.level", ce.Key)
}

func TestLoad_ResolvesVaultReferences(t *testing.T) {
	root := writeRoot(t, `
store:
  backend: http
  base_id: appXYZ
  api_key: "vault:secret/tenantcms/store#api_key"
`)
	cfg, err := LoadWith(context.Background(), Options{
		Root:    root,
		Secrets: stubSecrets{"secret/tenantcms/store#api_key": "s3cret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Store.APIKey)
}

func TestLoad_UnresolvableVaultReference(t *testing.T) {
	root := writeRoot(t, `
store:
  backend: http
  base_id: appXYZ
  api_key: "vault:secret/tenantcms/store#missing"
`)
	_, err := LoadWith(context.Background(), Options{Root: root, Secrets: stubSecrets{}})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "store.api_key", ce.Key)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWith(context.Background(), Options{Root: t.TempDir()})
	assert.Error(t, err)
}
