package config

// Config is the hot-reloadable configuration document for the tool router.
type Config struct {
	// MCP servers to connect to
	Servers []ServerConfig `json:"servers" mapstructure:"servers"`

	// Policy for confirmation, validation and timeouts
	Policy PolicyConfig `json:"policy" mapstructure:"policy"`

	// Runtime behavior
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig describes one tool-providing backend.
type ServerConfig struct {
	ID        string `json:"id" mapstructure:"id"`
	Transport string `json:"transport" mapstructure:"transport"` // stdio, ws, websocket

	// stdio transport
	Command string            `json:"command,omitempty" mapstructure:"command"`
	Args    []string          `json:"args,omitempty" mapstructure:"args"`
	Env     map[string]string `json:"env,omitempty" mapstructure:"env"`

	// websocket transport
	URL     string            `json:"url,omitempty" mapstructure:"url"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

// PolicyConfig governs which calls need confirmation and which arguments pass.
type PolicyConfig struct {
	SensitiveKeywords   []string     `json:"sensitive_keywords" mapstructure:"sensitive_keywords"`
	RequireConfirmation bool         `json:"require_confirmation" mapstructure:"require_confirmation"`
	ConfirmTimeoutSec   float64      `json:"confirm_timeout_sec" mapstructure:"confirm_timeout_sec"`
	ToolTimeoutSec      float64      `json:"tool_timeout_sec" mapstructure:"tool_timeout_sec"`
	AllowedRoots        []string     `json:"allowed_roots" mapstructure:"allowed_roots"`
	Filler              FillerConfig `json:"filler" mapstructure:"filler"`
}

// FillerConfig controls progress speech during long tool calls.
type FillerConfig struct {
	Enabled      bool     `json:"enabled" mapstructure:"enabled"`
	FirstAfterMS int      `json:"first_after_ms" mapstructure:"first_after_ms"`
	IntervalMS   int      `json:"interval_ms" mapstructure:"interval_ms"`
	Phrases      []string `json:"phrases" mapstructure:"phrases"`
}

// RuntimeConfig controls the router's background behavior.
type RuntimeConfig struct {
	HotReload      bool    `json:"hot_reload" mapstructure:"hot_reload"`
	ReloadEverySec float64 `json:"reload_every_sec" mapstructure:"reload_every_sec"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns the configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Servers: []ServerConfig{},
		Policy: PolicyConfig{
			SensitiveKeywords:   []string{},
			RequireConfirmation: true,
			ConfirmTimeoutSec:   6,
			ToolTimeoutSec:      25,
			AllowedRoots:        []string{},
			Filler: FillerConfig{
				Enabled:      true,
				FirstAfterMS: 600,
				IntervalMS:   3000,
				Phrases: []string{
					"Let me work on that.",
					"Still processing...",
					"One moment...",
					"Almost there...",
					"Working on it...",
				},
			},
		},
		Runtime: RuntimeConfig{
			HotReload:      false,
			ReloadEverySec: 5,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}
