package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newConversationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversation",
		Aliases: []string{"conv"},
		Short:   "Inspect backend conversations",
	}
	cmd.AddCommand(newConversationListCmd())
	cmd.AddCommand(newConversationShowCmd())
	return cmd
}

func newConversationListCmd() *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations for an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if agentName == "" {
				agentName = cfg.Chat.DefaultAgent
			}
			if agentName == "" {
				return fmt.Errorf("no agent selected; use --agent or set chat.defaultAgent in config")
			}
			client := newGatewayClient(cfg)
			convs, err := client.ListConversations(cmd.Context(), agentName)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Printf("no conversations for %s\n", agentName)
				return nil
			}
			for _, c := range convs {
				fmt.Printf("%s  %s  (%d messages)\n", c.ConversationID, c.Timestamp, c.MessageCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent whose conversations to list")
	return cmd
}

func newConversationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation's raw history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newGatewayClient(loadConfig())
			raw, err := client.GetConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(json.RawMessage(raw))
		},
	}
}
