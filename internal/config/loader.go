package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and DSNs can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
	cfg.Evolution.APIKey = expandEnvVars(cfg.Evolution.APIKey)
	cfg.Evolution.InstanceKey = expandEnvVars(cfg.Evolution.InstanceKey)
	cfg.Model.APIKey = expandEnvVars(cfg.Model.APIKey)
	cfg.Store.DSN = expandEnvVars(cfg.Store.DSN)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = d.Gateway.Port
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = d.Gateway.Bind
	}
	if cfg.Gateway.WebhookPath == "" {
		cfg.Gateway.WebhookPath = d.Gateway.WebhookPath
	}
	if cfg.Evolution.BaseURL == "" {
		cfg.Evolution.BaseURL = d.Evolution.BaseURL
	}
	if cfg.Evolution.RequestsPerSecond == 0 {
		cfg.Evolution.RequestsPerSecond = d.Evolution.RequestsPerSecond
	}
	if cfg.Evolution.TimeoutSeconds == 0 {
		cfg.Evolution.TimeoutSeconds = d.Evolution.TimeoutSeconds
	}
	if cfg.Pipeline.StaleAfterMinutes == 0 {
		cfg.Pipeline.StaleAfterMinutes = d.Pipeline.StaleAfterMinutes
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = d.Pipeline.Workers
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = d.Pipeline.QueueSize
	}
	if cfg.Pipeline.StripMentions == nil {
		cfg.Pipeline.StripMentions = d.Pipeline.StripMentions
	}
	if cfg.Pipeline.BotName == "" {
		cfg.Pipeline.BotName = d.Pipeline.BotName
	}
	if cfg.Pipeline.HistoryLimit == 0 {
		cfg.Pipeline.HistoryLimit = d.Pipeline.HistoryLimit
	}
	if cfg.Scheduler.TickInterval == "" {
		cfg.Scheduler.TickInterval = d.Scheduler.TickInterval
	}
	if cfg.Scheduler.MaxConcurrent == 0 {
		cfg.Scheduler.MaxConcurrent = d.Scheduler.MaxConcurrent
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = d.Store.Driver
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = d.Model.BaseURL
	}
	if cfg.Model.TextModel == "" {
		cfg.Model.TextModel = d.Model.TextModel
	}
	if cfg.Model.VisionModel == "" {
		cfg.Model.VisionModel = d.Model.VisionModel
	}
	if cfg.Model.ImageModel == "" {
		cfg.Model.ImageModel = d.Model.ImageModel
	}
	if cfg.Model.AudioModel == "" {
		cfg.Model.AudioModel = d.Model.AudioModel
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = d.Model.TimeoutSeconds
	}
	if cfg.Access.Mode == "" {
		cfg.Access.Mode = d.Access.Mode
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
}

// applyEnvOverrides reads GORK_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GORK_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("GORK_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("GORK_EVOLUTION_URL"); v != "" {
		cfg.Evolution.BaseURL = v
	}
	if v := os.Getenv("GORK_EVOLUTION_INSTANCE"); v != "" {
		cfg.Evolution.Instance = v
	}
	if v := os.Getenv("GORK_EVOLUTION_API_KEY"); v != "" {
		cfg.Evolution.APIKey = v
	}
	if v := os.Getenv("GORK_EVOLUTION_INSTANCE_KEY"); v != "" {
		cfg.Evolution.InstanceKey = v
	}
	if v := os.Getenv("GORK_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("GORK_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("GORK_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("GORK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
