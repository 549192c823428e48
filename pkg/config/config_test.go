package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.False(t, cfg.JWT.Enabled)
	assert.Equal(t, 30*time.Second, cfg.JWT.Leeway)
	assert.False(t, cfg.Finance.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Finance.CacheTTL)
	assert.Equal(t, 10, cfg.Finance.SessionMonths)
	assert.False(t, cfg.Reports.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Reports.SignedURLTTL)
	assert.Equal(t, 2*time.Second, cfg.Reports.RetryDelay)
	assert.True(t, cfg.Configuration.Enabled)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("STORE_DRIVER", " Postgres ")
	t.Setenv("FINANCE_CACHE_ENABLED", "true")
	t.Setenv("FINANCE_CACHE_TTL", "90s")
	t.Setenv("FINANCE_SESSION_MONTHS", "0")
	t.Setenv("JWT_ENABLED", "true")
	t.Setenv("JWT_AUDIENCE", "sma-finance")
	t.Setenv("JWT_LEEWAY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("MONGO_MAX_POOL_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.True(t, cfg.Finance.CacheEnabled)
	assert.Equal(t, 90*time.Second, cfg.Finance.CacheTTL)
	assert.Equal(t, 10, cfg.Finance.SessionMonths)
	assert.True(t, cfg.JWT.Enabled)
	assert.Equal(t, "sma-finance", cfg.JWT.Audience)
	assert.Equal(t, 30*time.Second, cfg.JWT.Leeway)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, uint64(50), cfg.Mongo.MaxPoolSize)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\nCONFIG_SCHOOL_NAME=Hill View\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("CONFIG_SCHOOL_NAME")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "Hill View", cfg.Configuration.SchoolName)
}
