package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/config"
	"github.com/agentmux/agentmux/internal/gateway"
	"github.com/agentmux/agentmux/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	serverURL string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentmux",
		Short: "Terminal client for a multi-agent chat backend",
		Long:  "agentmux talks to a multi-agent backend: it sends chat messages, follows live tool-call progress over the push channel, and keeps a local usage ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.agentmux/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "backend base URL (default from config)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newConversationCmd())
	cmd.AddCommand(newUsageCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads the config file, falling back to defaults, and applies
// command-line overrides.
func loadConfig() config.Config {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.Defaults()
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	// The flag wins; otherwise the config file may raise or lower the level.
	if logLevel == "" && cfg.Logging.Level != "" {
		log = logging.New(nil, cfg.Logging.Level)
	}
	return cfg
}

func newGatewayClient(cfg config.Config) *gateway.Client {
	return gateway.NewClient(cfg.Server.URL, cfg.Server.Token, log)
}
