package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatrelay/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray config file is
// picked up.
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

	cfg, err := config.Load("relay")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Service.Addr)
	assert.Equal(t, 10*time.Second, cfg.Service.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Transport.AllowedOrigins)
	assert.Equal(t, int64(512*1024), cfg.Transport.ReadLimit)
	assert.Equal(t, 256, cfg.Transport.SendBuffer)
	assert.Equal(t, 30*time.Second, cfg.Presence.SyncInterval)
	assert.Equal(t, 45*time.Second, cfg.Presence.TTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "presence:online", cfg.Redis.PresenceKey)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Tracer.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("RELAY_SERVICE_ADDR", ":9000")
	t.Setenv("RELAY_LOGGER_LEVEL", "debug")
	t.Setenv("RELAY_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RELAY_PRESENCE_TTL", "2m")

	cfg, err := config.Load("relay")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Service.Addr)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 2*time.Minute, cfg.Presence.TTL)
}

func TestLoadHonorsPortAndClientOrigin(t *testing.T) {
	inTempDir(t)
	t.Setenv("PORT", "4000")
	t.Setenv("CLIENT_ORIGIN", "https://chat.example.com")

	cfg, err := config.Load("relay")
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Service.Addr)
	assert.Equal(t, []string{"https://chat.example.com"}, cfg.Transport.AllowedOrigins)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := inTempDir(t)
	yaml := `
service:
  addr: ":7070"
transport:
  allowedOrigins:
    - https://a.example.com
    - https://b.example.com
  sendBuffer: 16
presence:
  syncInterval: 5s
  ttl: 15s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relay.yaml"), []byte(yaml), 0o600))

	cfg, err := config.Load("relay")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Service.Addr)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Transport.AllowedOrigins)
	assert.Equal(t, 16, cfg.Transport.SendBuffer)
	assert.Equal(t, 5*time.Second, cfg.Presence.SyncInterval)
	assert.Equal(t, 15*time.Second, cfg.Presence.TTL)
}

func TestLoadRejectsInvalidTimings(t *testing.T) {
	inTempDir(t)
	t.Setenv("RELAY_TRANSPORT_PINGINTERVAL", "90s")
	t.Setenv("RELAY_PRESENCE_TTL", "1s")

	_, err := config.Load("relay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport.pingInterval")
	assert.Contains(t, err.Error(), "presence.ttl")
}
