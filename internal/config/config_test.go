package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-relay/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, config.ProviderOffline, cfg.Model.Provider)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "medium", cfg.Restoration.Level)
	assert.Equal(t, 10, cfg.Restoration.Years)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: console
model:
  provider: OpenAI
  name: my-model
  timeout: 5s
  retries: 4
batch:
  concurrency: 0
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, config.ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, "my-model", cfg.Model.Name)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 4, cfg.Model.Retries)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("RELAY_SERVER_ADDR", ":9100")
	t.Setenv("RELAY_MODEL_API_KEY", "secret")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Model.APIKey)
}

func TestLoadUnknownProvider(t *testing.T) {
	path := writeConfig(t, "model:\n  provider: carrier-pigeon\n")

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrUnknownProvider)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
