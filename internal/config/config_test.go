package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
	assert.EqualValues(t, 64<<10, cfg.Server.MaxBodyBytes)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Tiles.Timeout)
	assert.Equal(t, 4, cfg.Drives.MaxConcurrency)
	assert.True(t, cfg.Drives.UseSudo)
	assert.Equal(t, "/sys/class/thermal", cfg.Thermal.Dir)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talondash.yaml")
	yaml := "server:\n  port: 8080\nlog:\n  level: debug\ndrives:\n  use_sudo: false\n  probe_timeout: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("TALONDASH_SERVER_PORT", "9090")
	t.Setenv("TALONDASH_AUTH_ADMIN_USER", "ops")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Drives.UseSudo)
	assert.Equal(t, 2*time.Second, cfg.Drives.ProbeTimeout)
	assert.Equal(t, "ops", cfg.Auth.AdminUser)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Drives.MaxConcurrency = -1
	cfg.DB.Driver = "mysql"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "drives.max_concurrency")
	assert.Contains(t, err.Error(), `db.driver "mysql"`)
}

func TestLoadGeneratesJWTSecret(t *testing.T) {
	chdir(t, t.TempDir())

	first, err := Load("")
	require.NoError(t, err)
	second, err := Load("")
	require.NoError(t, err)

	assert.True(t, first.Auth.JWTSecretGenerated)
	assert.Len(t, first.Auth.JWTSecret, 64)
	assert.NotEqual(t, first.Auth.JWTSecret, second.Auth.JWTSecret)
	assert.True(t, first.Auth.DefaultPassword())
}

func TestLoadKeepsConfiguredJWTSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TALONDASH_AUTH_JWT_SECRET", "0123456789abcdef-configured")
	t.Setenv("TALONDASH_AUTH_ADMIN_PASSWORD", "changed")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef-configured", cfg.Auth.JWTSecret)
	assert.False(t, cfg.Auth.JWTSecretGenerated)
	assert.False(t, cfg.Auth.DefaultPassword())
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TALONDASH_AUTH_JWT_SECRET", "short")

	_, err := Load("")
	assert.ErrorContains(t, err, "auth.jwt_secret")
}

// chdir mirrors testing.T.Chdir (Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
