package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func adjustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <account> <difference>",
		Short: "Reconcile an account against its real-world balance",
		Long: `Record a corrective transaction so the ledger matches an observed
balance. A positive difference books an Income Adjustment, a negative
one an Expense Adjustment.

Example:
  kharcha adjust Checking -125.50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			difference, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid difference %q: %w", args[1], err)
			}

			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			created, err := engine.AdjustBalance(cmd.Context(), userID, args[0], difference)
			if err != nil {
				return err
			}
			if created == nil {
				fmt.Println("Nothing to adjust")
				return nil
			}

			fmt.Printf("Recorded %s of %s against %q\n", created.Category, created.Amount.String(), args[0])
			return nil
		},
	}
}
