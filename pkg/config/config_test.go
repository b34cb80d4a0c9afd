package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so a developer .env is not picked up.
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

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Store.ConnectMaxElapsed)
	assert.Equal(t, ShiftPolicyExplicit, cfg.Roster.ShiftPolicy)
	assert.Equal(t, 5, cfg.Repair.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Repair.SweepInterval)
	assert.False(t, cfg.Cache.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("SHIFT_POLICY", "Hourly")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REPAIR_RETRY_DELAY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, ShiftPolicyHourly, cfg.Roster.ShiftPolicy)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Second, cfg.Repair.RetryDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_ISSUER=roster-test\nPORT=9090\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("JWT_ISSUER")
		_ = os.Unsetenv("PORT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "roster-test", cfg.JWT.Issuer)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	inTempDir(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	require.Error(t, err)
}

func TestUnknownShiftPolicyFallsBackToExplicit(t *testing.T) {
	inTempDir(t)
	t.Setenv("SHIFT_POLICY", "weekly")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ShiftPolicyExplicit, cfg.Roster.ShiftPolicy)
}
