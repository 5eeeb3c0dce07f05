package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"port too high", func(c *Config) { c.Gateway.Port = 70000 }, "gateway.port"},
		{"port negative", func(c *Config) { c.Gateway.Port = -1 }, "gateway.port"},
		{"bad bind", func(c *Config) { c.Gateway.Bind = "tailnet" }, "gateway.bind"},
		{"custom bind without host", func(c *Config) { c.Gateway.Bind = "custom" }, "gateway.customBindHost"},
		{"tls without cert", func(c *Config) { c.Gateway.TLS.Enabled = true }, "gateway.tls"},
		{"events without token", func(c *Config) { c.Gateway.Events.Enabled = true }, "gateway.auth.token"},
		{"relative evolution url", func(c *Config) { c.Evolution.BaseURL = "evo.local" }, "evolution.baseUrl"},
		{"negative rps", func(c *Config) { c.Evolution.RequestsPerSecond = -1 }, "evolution.requestsPerSecond"},
		{"negative stale", func(c *Config) { c.Pipeline.StaleAfterMinutes = -3 }, "pipeline.staleAfterMinutes"},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }, "pipeline.workers"},
		{"negative queue", func(c *Config) { c.Pipeline.QueueSize = -1 }, "pipeline.queueSize"},
		{"bad tick", func(c *Config) { c.Scheduler.TickInterval = "soon" }, "scheduler.tickInterval"},
		{"bad driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"bad access mode", func(c *Config) { c.Access.Mode = "closed" }, "access.mode"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad console style", func(c *Config) { c.Logging.ConsoleStyle = "compact" }, "logging.consoleStyle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.path, issues[0].Path)
			assert.Contains(t, issues[0].String(), tt.path)
		})
	}
}

func TestValidate_ValidVariants(t *testing.T) {
	for _, bind := range []string{"loopback", "lan", ""} {
		cfg := Defaults()
		cfg.Gateway.Bind = bind
		assert.Empty(t, Validate(&cfg), "bind %q should be valid", bind)
	}
	for _, mode := range []string{"open", "whitelist"} {
		cfg := Defaults()
		cfg.Access.Mode = mode
		assert.Empty(t, Validate(&cfg), "access mode %q should be valid", mode)
	}

	cfg := Defaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DSN = "postgres://localhost/gork"
	assert.Empty(t, Validate(&cfg))
}

func TestValidateForServe(t *testing.T) {
	cfg := Defaults()
	issues := ValidateForServe(&cfg)

	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.ElementsMatch(t, []string{"evolution.instance", "evolution.instanceKey"}, paths)

	cfg.Evolution.Instance = "gork"
	cfg.Evolution.InstanceKey = "secret"
	assert.Empty(t, ValidateForServe(&cfg))
}
