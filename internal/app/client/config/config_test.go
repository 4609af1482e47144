package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "localhost:8765", cfg.ServerAddress)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:8765", cfg.BaseURL())
	assert.Equal(t, "ws://localhost:8765/api/v1/events", cfg.EventsURL())
	assert.True(t, cfg.IsLocal())
}

func TestLoad_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server_address: example.org:9000\napi_token: from-file\n"), 0o600))
	t.Setenv("API_TOKEN", "from-env")
	t.Setenv("ENABLE_TLS", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "example.org:9000", cfg.ServerAddress)
	assert.Equal(t, "from-env", cfg.APIToken)
	assert.Equal(t, "https://example.org:9000", cfg.BaseURL())
	assert.Equal(t, "wss://example.org:9000/api/v1/events", cfg.EventsURL())
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REQUEST_TIMEOUT", "-1s")

	_, err := Load()

	assert.Error(t, err)
}

func TestConfig_Env(t *testing.T) {
	tests := []struct {
		env   string
		prod  bool
		dev   bool
		local bool
	}{
		{env: "prod", prod: true},
		{env: "dev", dev: true},
		{env: "local", local: true},
		{env: "", local: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			c := &Config{Env: tt.env}

			assert.Equal(t, tt.prod, c.IsProd())
			assert.Equal(t, tt.dev, c.IsDev())
			assert.Equal(t, tt.local, c.IsLocal())
		})
	}
}
