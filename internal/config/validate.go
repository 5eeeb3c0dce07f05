package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/gorkbot/gork/internal/logging"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.customBindHost",
			Message: "required when bind is custom",
		})
	}
	if cfg.Gateway.TLS.Enabled && (cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "") {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.tls",
			Message: "certPath and keyPath are required when tls is enabled",
		})
	}
	if cfg.Gateway.Events.Enabled && cfg.Gateway.Auth.Token == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.auth.token",
			Message: "required when the event feed is enabled",
		})
	}

	// Evolution validation
	if cfg.Evolution.BaseURL != "" {
		if u, err := url.Parse(cfg.Evolution.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "evolution.baseUrl",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Evolution.BaseURL),
			})
		}
	}
	if cfg.Evolution.RequestsPerSecond < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "evolution.requestsPerSecond",
			Message: "must not be negative",
		})
	}

	// Pipeline validation
	if cfg.Pipeline.StaleAfterMinutes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "pipeline.staleAfterMinutes",
			Message: "must not be negative",
		})
	}
	if cfg.Pipeline.Workers < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "pipeline.workers",
			Message: "must not be negative",
		})
	}
	if cfg.Pipeline.QueueSize < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "pipeline.queueSize",
			Message: "must not be negative",
		})
	}

	// Scheduler validation
	if cfg.Scheduler.TickInterval != "" {
		if d, err := time.ParseDuration(cfg.Scheduler.TickInterval); err != nil || d <= 0 {
			issues = append(issues, ValidationIssue{
				Path:    "scheduler.tickInterval",
				Message: fmt.Sprintf("must be a positive duration, got %q", cfg.Scheduler.TickInterval),
			})
		}
	}

	// Store validation
	validDrivers := []string{"sqlite", "postgres"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		issues = append(issues, ValidationIssue{
			Path:    "store.driver",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Store.Driver),
		})
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.DSN == "" {
		issues = append(issues, ValidationIssue{
			Path:    "store.dsn",
			Message: "required when driver is postgres",
		})
	}

	// Access validation
	validAccessModes := []string{"open", "whitelist"}
	if cfg.Access.Mode != "" && !slices.Contains(validAccessModes, cfg.Access.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "access.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAccessModes, cfg.Access.Mode),
		})
	}

	// Logging validation
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", logging.Levels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}

// ValidateForServe adds the checks that only matter when the server runs:
// credentials for the Evolution API and the webhook.
func ValidateForServe(cfg *Config) []ValidationIssue {
	issues := Validate(cfg)
	if cfg.Evolution.Instance == "" {
		issues = append(issues, ValidationIssue{Path: "evolution.instance", Message: "instance is required"})
	}
	if cfg.Evolution.InstanceKey == "" {
		issues = append(issues, ValidationIssue{Path: "evolution.instanceKey", Message: "instanceKey is required to authenticate webhooks"})
	}
	return issues
}
