package config

// Config is the root configuration for gork.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Evolution EvolutionConfig `yaml:"evolution,omitempty"`
	Pipeline  PipelineConfig  `yaml:"pipeline,omitempty"`
	Scheduler SchedulerConfig `yaml:"scheduler,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Model     ModelConfig     `yaml:"model,omitempty"`
	Access    AccessConfig    `yaml:"access,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// GatewayConfig controls the webhook HTTP server and the operator event feed.
type GatewayConfig struct {
	Port           int          `yaml:"port,omitempty"`
	Bind           string       `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string       `yaml:"customBindHost,omitempty"`
	WebhookPath    string       `yaml:"webhookPath,omitempty"`
	Auth           GatewayAuth  `yaml:"auth,omitempty"`
	TLS            GatewayTLS   `yaml:"tls,omitempty"`
	Events         EventsConfig `yaml:"events,omitempty"`
}

// GatewayAuth configures authentication for the operator event feed.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// EventsConfig toggles the websocket event feed.
type EventsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// EvolutionConfig points at the Evolution API instance that owns the
// WhatsApp session.
type EvolutionConfig struct {
	BaseURL           string  `yaml:"baseUrl,omitempty"`
	Instance          string  `yaml:"instance,omitempty"`
	APIKey            string  `yaml:"apiKey,omitempty"`      // sent as the apikey header on outbound calls
	InstanceKey       string  `yaml:"instanceKey,omitempty"` // expected in the apikey field of webhook bodies
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds,omitempty"`
}

// PipelineConfig controls inbound event processing.
type PipelineConfig struct {
	StaleAfterMinutes int    `yaml:"staleAfterMinutes,omitempty"`
	Workers           int    `yaml:"workers,omitempty"`
	QueueSize         int    `yaml:"queueSize,omitempty"`
	StripMentions     *bool  `yaml:"stripMentions,omitempty"` // defaults to true
	BotName           string `yaml:"botName,omitempty"`
	BotNumber         string `yaml:"botNumber,omitempty"`
	HistoryLimit      int    `yaml:"historyLimit,omitempty"`
}

// SchedulerConfig controls the deferred job scheduler.
type SchedulerConfig struct {
	TickInterval  string `yaml:"tickInterval,omitempty"` // Go duration, e.g. "1s"
	MaxConcurrent int    `yaml:"maxConcurrent,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "postgres"
	Path   string `yaml:"path,omitempty"`   // sqlite file, defaults to <data>/gork.db
	DSN    string `yaml:"dsn,omitempty"`    // postgres connection string
}

// ModelConfig configures the OpenAI-compatible model gateway.
type ModelConfig struct {
	BaseURL        string   `yaml:"baseUrl,omitempty"`
	APIKey         string   `yaml:"apiKey,omitempty"`
	TextModel      string   `yaml:"textModel,omitempty"`
	VisionModel    string   `yaml:"visionModel,omitempty"`
	ImageModel     string   `yaml:"imageModel,omitempty"`
	AudioModel     string   `yaml:"audioModel,omitempty"`
	Fallbacks      []string `yaml:"fallbacks,omitempty"` // tried in order on retryable errors
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// AccessConfig restricts who the bot answers.
type AccessConfig struct {
	Mode string `yaml:"mode,omitempty"` // "open" | "whitelist"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
