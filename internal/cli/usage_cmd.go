package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/store"
)

func newUsageCmd() *cobra.Command {
	var (
		agentName string
		byModel   bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded token usage from the local ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.Ledger.Enabled {
				return fmt.Errorf("usage ledger is disabled in config")
			}
			db, err := store.Open(paths.LedgerPath(cfg.Ledger), log)
			if err != nil {
				return err
			}
			defer db.Close()
			ledger := store.NewLedger(db)

			totals, err := ledger.Totals(agentName)
			if err != nil {
				return err
			}
			scope := "all agents"
			if agentName != "" {
				scope = agentName
			}
			fmt.Printf("usage for %s:\n", scope)
			fmt.Printf("  records:        %d\n", totals.Records)
			fmt.Printf("  input tokens:   %d\n", totals.InputTokens)
			fmt.Printf("  output tokens:  %d\n", totals.OutputTokens)
			fmt.Printf("  total tokens:   %d\n", totals.TotalTokens)
			fmt.Printf("  estimated cost: $%.4f\n", totals.EstimatedCost)

			if !byModel {
				return nil
			}
			rows, err := ledger.ByModel(agentName)
			if err != nil {
				return err
			}
			if len(rows) > 0 {
				fmt.Println("by model:")
			}
			for _, r := range rows {
				fmt.Printf("  %-30s %6d records  %10d tokens  $%.4f\n", r.Model, r.Records, r.TotalTokens, r.EstimatedCost)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "restrict to a single agent")
	cmd.Flags().BoolVar(&byModel, "by-model", false, "break totals down per model")
	return cmd
}
