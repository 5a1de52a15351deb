package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and manage backend agents",
	}
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentReloadCmd())
	cmd.AddCommand(newAgentProvidersCmd())
	cmd.AddCommand(newAgentToolsCmd())
	return cmd
}

func newAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents available on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newGatewayClient(loadConfig())
			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(agents))
			for name := range agents {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				info := agents[name]
				fmt.Printf("%s  (%s/%s)\n", name, info.ModelType, info.ModelName)
				if info.Description != "" {
					fmt.Printf("    %s\n", info.Description)
				}
				if len(info.Tools) > 0 {
					fmt.Printf("    tools: %s\n", strings.Join(info.Tools, ", "))
				}
			}
			return nil
		},
	}
}

func newAgentReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the backend to reload its agent configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newGatewayClient(loadConfig())
			res, err := client.ReloadAgents(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			if len(res.Agents) > 0 {
				fmt.Printf("agents: %s\n", strings.Join(res.Agents, ", "))
			}
			return nil
		},
	}
}

func newAgentProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List model providers known to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newGatewayClient(loadConfig())
			res, err := client.ListProviders(cmd.Context())
			if err != nil {
				return err
			}
			providers := make([]string, 0, len(res.Providers))
			for p := range res.Providers {
				providers = append(providers, p)
			}
			sort.Strings(providers)
			for _, p := range providers {
				marker := ""
				if p == res.DefaultProvider {
					marker = " (default)"
				}
				fmt.Printf("%s%s\n", p, marker)
				for _, m := range res.Providers[p] {
					fmt.Printf("    %s\n", m)
				}
			}
			return nil
		},
	}
}

func newAgentToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List tools available on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newGatewayClient(loadConfig())
			tools, err := client.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tools {
				fmt.Println(t)
			}
			return nil
		},
	}
}
