package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
log_level  = "debug"
log_format = "json"

listener "api" {
  address = "127.0.0.1:8200"
}

storage "inmem" {}

jwt {
  issuer             = "https://auth.example.com"
  ttl_seconds        = 900
  clock_skew_seconds = 30
}

introspection {
  endpoint        = "https://auth.example.com/v1/auth/introspect"
  timeout_seconds = 2
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "inmem", cfg.Storage.Type)
	assert.Equal(t, "https://auth.example.com", cfg.JWT.Issuer)
	assert.Equal(t, 900*time.Second, cfg.JWT.TokenTTL())
	assert.Equal(t, 30*time.Second, cfg.JWT.ClockSkew())
	assert.Equal(t, 2*time.Second, cfg.Introspection.Timeout())

	api, err := cfg.GetApiListener()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8200", api.Address)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
listener "api" {
  address = "127.0.0.1:8200"
}

jwt {
  issuer = "https://auth.example.com"
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultTokenTTL, cfg.JWT.TokenTTL())
	assert.Equal(t, DefaultClockSkew, cfg.JWT.ClockSkew())
	assert.Nil(t, cfg.Introspection)
	assert.Equal(t, 5*time.Second, cfg.Introspection.Timeout())
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("missing issuer", func(t *testing.T) {
		path := writeConfig(t, `
listener "api" {
  address = "127.0.0.1:8200"
}
`)
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "issuer")
	})

	t.Run("missing listener", func(t *testing.T) {
		path := writeConfig(t, `
jwt {
  issuer = "https://auth.example.com"
}
`)
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listener")
	})
}

func TestGetListenerByName(t *testing.T) {
	cfg := &Config{
		Listeners: []ListenerBlock{
			{Name: "api", Address: "127.0.0.1:8200"},
			{Name: "cluster", Address: "127.0.0.1:8201"},
		},
	}

	listener, err := cfg.GetListenerByName("cluster")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8201", listener.Address)

	_, err = cfg.GetListenerByName("missing")
	assert.Error(t, err)
}
