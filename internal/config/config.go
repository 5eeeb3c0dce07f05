package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	strip := true
	return Config{
		Gateway: GatewayConfig{
			Port:        8787,
			Bind:        "loopback",
			WebhookPath: "/webhook/evolution",
		},
		Evolution: EvolutionConfig{
			BaseURL:           "http://localhost:8080",
			RequestsPerSecond: 5,
			TimeoutSeconds:    30,
		},
		Pipeline: PipelineConfig{
			StaleAfterMinutes: 20,
			Workers:           8,
			QueueSize:         128,
			StripMentions:     &strip,
			BotName:           "Gork",
			HistoryLimit:      20,
		},
		Scheduler: SchedulerConfig{
			TickInterval:  "1s",
			MaxConcurrent: 16,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Model: ModelConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			TextModel:      "openai/gpt-4o-mini",
			VisionModel:    "openai/gpt-4o-mini",
			ImageModel:     "google/gemini-2.5-flash-image-preview",
			AudioModel:     "google/gemini-2.5-flash",
			TimeoutSeconds: 120,
		},
		Access: AccessConfig{
			Mode: "open",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// StaleAfter is the maximum age of an inbound event before it is dropped.
func (p PipelineConfig) StaleAfter() time.Duration {
	return time.Duration(p.StaleAfterMinutes) * time.Minute
}

// StripMentionsEnabled reports whether bare numeric mentions are removed
// from the clean text handed to command handlers.
func (p PipelineConfig) StripMentionsEnabled() bool {
	return p.StripMentions == nil || *p.StripMentions
}

// Tick parses TickInterval, falling back to one second.
func (s SchedulerConfig) Tick() time.Duration {
	d, err := time.ParseDuration(s.TickInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// Timeout returns the outbound request timeout for the Evolution API.
func (e EvolutionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Timeout returns the request timeout for model calls.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}
