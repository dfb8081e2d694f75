package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8000/api", c.ServerURL)
	assert.Equal(t, "facegate.db", c.DatabasePath)
	assert.Equal(t, "sqlite", c.StoreBackend)
	assert.Equal(t, 12*time.Second, c.RequestTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.StoreSecret)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.ServerURL)
	assert.Equal(t, 12*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Setenv("FACEGATE_SERVER_URL", "http://env:1/api")
	t.Setenv("FACEGATE_STORE", "redis")
	t.Setenv("FACEGATE_REDIS_URL", "redis://env:6379/0")
	t.Setenv("FACEGATE_LOG_LEVEL", "debug")

	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":    "http://json:2/api",
		"database_path": "json.db",
	})
	os.Args = []string{"testbin", "-c", path, "-a", "http://flag:3/api"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag:3/api", cfg.ServerURL, "flags win over json and env")
	assert.Equal(t, "json.db", cfg.DatabasePath, "json wins over defaults")
	assert.Equal(t, "redis", cfg.StoreBackend, "env survives when json and flags are silent")
	assert.Equal(t, "redis://env:6379/0", cfg.RedisURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}
