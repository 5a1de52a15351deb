package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			URL: "http://localhost:8000",
		},
		Channel: ChannelConfig{
			ReconnectMaxAttempts: 5,
			ReconnectBaseDelayMs: 500,
			ReconnectMaxDelayMs:  8000,
			KeepaliveWindowSecs:  90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Ledger: LedgerConfig{
			Enabled: true,
		},
	}
}
