package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 8787, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "/webhook/evolution", cfg.Gateway.WebhookPath)
	assert.Equal(t, 20, cfg.Pipeline.StaleAfterMinutes)
	assert.Equal(t, 20*time.Minute, cfg.Pipeline.StaleAfter())
	assert.True(t, cfg.Pipeline.StripMentionsEnabled())
	assert.Equal(t, "Gork", cfg.Pipeline.BotName)
	assert.Equal(t, time.Second, cfg.Scheduler.Tick())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "open", cfg.Access.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8787, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("TEST_EVOLUTION_KEY", "from-env")

	yaml := `
gateway:
  port: 9999
  bind: lan
evolution:
  baseUrl: https://evo.example.com
  instance: gork
  apiKey: ${TEST_EVOLUTION_KEY}
  instanceKey: hook-secret
pipeline:
  staleAfterMinutes: 5
  stripMentions: false
  botName: Bob
scheduler:
  tickInterval: 250ms
store:
  driver: postgres
  dsn: postgres://gork@localhost/gork
access:
  mode: whitelist
logging:
  level: debug
  consoleStyle: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "lan", cfg.Gateway.Bind)
	assert.Equal(t, "/webhook/evolution", cfg.Gateway.WebhookPath)
	assert.Equal(t, "https://evo.example.com", cfg.Evolution.BaseURL)
	assert.Equal(t, "gork", cfg.Evolution.Instance)
	assert.Equal(t, "from-env", cfg.Evolution.APIKey)
	assert.Equal(t, "hook-secret", cfg.Evolution.InstanceKey)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.StaleAfter())
	assert.False(t, cfg.Pipeline.StripMentionsEnabled())
	assert.Equal(t, "Bob", cfg.Pipeline.BotName)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.Tick())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "whitelist", cfg.Access.Mode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GORK_GATEWAY_PORT", "12345")
	t.Setenv("GORK_LOG_LEVEL", "TRACE")
	t.Setenv("GORK_EVOLUTION_INSTANCE_KEY", "secret")
	t.Setenv("GORK_STORE_DRIVER", "Postgres")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.Gateway.Port)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "secret", cfg.Evolution.InstanceKey)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("GORK_TEST_SET", "value")

	assert.Equal(t, "value", expandEnvVars("${GORK_TEST_SET}"))
	assert.Equal(t, "pre-value-post", expandEnvVars("pre-${GORK_TEST_SET}-post"))
	assert.Equal(t, "${GORK_TEST_UNSET_VAR}", expandEnvVars("${GORK_TEST_UNSET_VAR}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestSchedulerTickFallback(t *testing.T) {
	assert.Equal(t, time.Second, SchedulerConfig{TickInterval: "nonsense"}.Tick())
	assert.Equal(t, time.Second, SchedulerConfig{TickInterval: "-5s"}.Tick())
	assert.Equal(t, 10*time.Millisecond, SchedulerConfig{TickInterval: "10ms"}.Tick())
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"gateway": map[string]any{
			"port": 9999,
		},
	}

	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"gateway", "port"})
	assert.True(t, ok)
	assert.Equal(t, 9999, val)
}

func TestLoadRawMissingFile(t *testing.T) {
	raw, err := LoadRaw(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, raw)
}
