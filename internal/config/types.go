package config

// Config is the root configuration for agentmux.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty"`
	Chat    ChatConfig    `yaml:"chat,omitempty"`
	Channel ChannelConfig `yaml:"channel,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Ledger  LedgerConfig  `yaml:"ledger,omitempty"`
}

// ServerConfig points at the agent backend.
type ServerConfig struct {
	URL   string `yaml:"url,omitempty"`
	Token string `yaml:"token,omitempty"` // bearer token, optional
}

// ChatConfig holds chat session defaults.
type ChatConfig struct {
	DefaultAgent string `yaml:"defaultAgent,omitempty"`
	Debug        bool   `yaml:"debug,omitempty"`
}

// ChannelConfig tunes the push-channel reconnect and liveness behavior.
type ChannelConfig struct {
	ReconnectMaxAttempts int `yaml:"reconnectMaxAttempts,omitempty"`
	ReconnectBaseDelayMs int `yaml:"reconnectBaseDelayMs,omitempty"`
	ReconnectMaxDelayMs  int `yaml:"reconnectMaxDelayMs,omitempty"`
	// KeepaliveWindowSecs is how long the channel may be silent (no events,
	// not even keepalives) before it is treated as stalled.
	KeepaliveWindowSecs int `yaml:"keepaliveWindowSecs,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // trace|debug|info|warn|error|fatal|silent
}

// LedgerConfig controls the local usage-telemetry ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // default <data dir>/agentmux.db
}
