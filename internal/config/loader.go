package config

import (
	"os"
	"regexp"

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
// credential fields so tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Server.Token = expandEnvVars(cfg.Server.Token)
}

// applyDefaults fills zero-valued fields with defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Server.URL == "" {
		cfg.Server.URL = def.Server.URL
	}
	if cfg.Channel.ReconnectMaxAttempts == 0 {
		cfg.Channel.ReconnectMaxAttempts = def.Channel.ReconnectMaxAttempts
	}
	if cfg.Channel.ReconnectBaseDelayMs == 0 {
		cfg.Channel.ReconnectBaseDelayMs = def.Channel.ReconnectBaseDelayMs
	}
	if cfg.Channel.ReconnectMaxDelayMs == 0 {
		cfg.Channel.ReconnectMaxDelayMs = def.Channel.ReconnectMaxDelayMs
	}
	if cfg.Channel.KeepaliveWindowSecs == 0 {
		cfg.Channel.KeepaliveWindowSecs = def.Channel.KeepaliveWindowSecs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// applyEnvOverrides lets environment variables override file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTMUX_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("AGENTMUX_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("AGENTMUX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AGENTMUX_AGENT"); v != "" {
		cfg.Chat.DefaultAgent = v
	}
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
