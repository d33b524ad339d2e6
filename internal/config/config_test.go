package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/", cfg.Gateway.BaseURL)
	assert.Equal(t, "productos/", cfg.Gateway.ProductsPath)
	assert.Equal(t, "categorias/", cfg.Gateway.CategoriesPath)
	assert.Equal(t, 0, cfg.Gateway.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Gateway.TimeoutDuration())
	assert.Equal(t, uint32(5), cfg.Gateway.Breaker.MinRequests)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "storefront:session:user", cfg.Redis.SessionKey)
	assert.True(t, cfg.Session.TrackVariants)
	assert.Equal(t, 100, cfg.Session.MaxQuantityPerItem)
	assert.Equal(t, 50, cfg.Session.MaxItems)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FileValues(t *testing.T) {
	dir := writeConfig(t, `
gateway:
  base_url: http://catalog.internal/api/
  products_path: products/
session:
  track_variants: false
auth:
  accounts:
    - id: "1"
      username: admin
      password_hash: "$2a$10$abcdefghijklmnopqrstuv"
      admin: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://catalog.internal/api/", cfg.Gateway.BaseURL)
	assert.Equal(t, "products/", cfg.Gateway.ProductsPath)
	assert.Equal(t, "categorias/", cfg.Gateway.CategoriesPath)
	assert.False(t, cfg.Session.TrackVariants)
	require.Len(t, cfg.Auth.Accounts, 1)
	assert.Equal(t, "admin", cfg.Auth.Accounts[0].Username)
	assert.True(t, cfg.Auth.Accounts[0].Admin)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := writeConfig(t, "redis:\n  port: 6380\n")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("GATEWAY_MAX_REQUESTS_PER_SECOND", "3")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
	assert.Equal(t, 3, cfg.Gateway.MaxRequestsPerSecond)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.yaml file not found")
}

func TestLoad_InvalidAccount(t *testing.T) {
	dir := writeConfig(t, `
auth:
  accounts:
    - username: admin
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password_hash")
}
