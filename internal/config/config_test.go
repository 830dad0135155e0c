package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv removes any LIGAPROXY_ variables so tests see only what they set,
// and points the loader at a path that does not exist so a developer's local
// config.yaml cannot leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, envPrefix+"_") {
			continue
		}
		key, value, _ := strings.Cut(kv, "=")
		os.Unsetenv(key)
		t.Cleanup(func() { os.Setenv(key, value) })
	}
	t.Setenv(envPrefix+"_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.Equal(t, "openliga", cfg.Provider.Name)
	assert.Equal(t, "https://api.openligadb.de", cfg.Provider.BaseURL)
	assert.Equal(t, 10, cfg.Provider.RateLimitRequests)
	assert.Equal(t, 60*time.Second, cfg.Provider.RateLimitWindow)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.Equal(t, time.Second, cfg.Provider.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Provider.MaxDelay)
	assert.Equal(t, 2.0, cfg.Provider.BackoffMultiplier)
	assert.Equal(t, 0.1, cfg.Provider.JitterRange)
	assert.Equal(t, 10*time.Second, cfg.Provider.RequestTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGAPROXY_SERVER_PORT", "9001")
	t.Setenv("LIGAPROXY_PROVIDER_MAX_RETRIES", "5")
	t.Setenv("LIGAPROXY_PROVIDER_RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Provider.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Provider.RateLimitWindow)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  host: 127.0.0.1
  port: 9100
provider:
  rate_limit_requests: 4
  base_delay: 500ms
  jitter_range: 0.05
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("LIGAPROXY_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Addr())
	assert.Equal(t, 4, cfg.Provider.RateLimitRequests)
	assert.Equal(t, 500*time.Millisecond, cfg.Provider.BaseDelay)
	assert.Equal(t, 0.05, cfg.Provider.JitterRange)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.Equal(t, "openliga", cfg.Provider.Name)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644))
	t.Setenv("LIGAPROXY_CONFIG_FILE", path)
	t.Setenv("LIGAPROXY_SERVER_PORT", "9200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero rate limit", "LIGAPROXY_PROVIDER_RATE_LIMIT_REQUESTS", "0"},
		{"negative retries", "LIGAPROXY_PROVIDER_MAX_RETRIES", "-1"},
		{"multiplier below one", "LIGAPROXY_PROVIDER_BACKOFF_MULTIPLIER", "0.5"},
		{"jitter out of range", "LIGAPROXY_PROVIDER_JITTER_RANGE", "1.5"},
		{"bad log level", "LIGAPROXY_LOGGING_LEVEL", "verbose"},
		{"bad port", "LIGAPROXY_SERVER_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMaxDelayBelowBaseDelay(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGAPROXY_PROVIDER_BASE_DELAY", "10s")
	t.Setenv("LIGAPROXY_PROVIDER_MAX_DELAY", "5s")

	_, err := Load()
	assert.Error(t, err)
}

func TestZeroRetriesAllowedFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGAPROXY_PROVIDER_MAX_RETRIES", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Provider.MaxRetries)
}
