package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kharcha-app/kharcha/internal/model"
	"github.com/kharcha-app/kharcha/internal/service"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record and inspect transactions",
	}
	cmd.AddCommand(txAddCmd())
	cmd.AddCommand(txListCmd())
	cmd.AddCommand(txDeleteCmd())
	return cmd
}

func txAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record a transaction",
		Long: `Record an Expense, Income or Transfer.

Examples:
  kharcha tx add 450 --category Groceries --source Checking
  kharcha tx add 90000 --type Income --category Salary --destination Checking
  kharcha tx add 5000 --type Transfer --category "Self Transfer" --source Checking --destination Wallet
  kharcha tx add 1200 --category Dinner --source "Credit Card" --split 600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}

			txType, _ := cmd.Flags().GetString("type")
			category, _ := cmd.Flags().GetString("category")
			source, _ := cmd.Flags().GetString("source")
			destination, _ := cmd.Flags().GetString("destination")
			notes, _ := cmd.Flags().GetString("notes")
			splitStr, _ := cmd.Flags().GetString("split")
			dateStr, _ := cmd.Flags().GetString("date")

			split := decimal.Zero
			if splitStr != "" {
				if split, err = decimal.NewFromString(splitStr); err != nil {
					return fmt.Errorf("invalid split amount %q: %w", splitStr, err)
				}
			}

			date := time.Now()
			if dateStr != "" {
				if date, err = time.Parse("2006-01-02", dateStr); err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
				}
			}

			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			created, err := engine.CreateTransaction(cmd.Context(), userID, model.Transaction{
				Type:        model.TransactionType(txType),
				Amount:      amount,
				SplitAmount: split,
				Category:    category,
				Source:      source,
				Destination: destination,
				Date:        date,
				Notes:       notes,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Recorded %s of %s (%s)\n", created.Type, created.Amount.String(), created.ID)
			return nil
		},
	}
	cmd.Flags().String("type", string(model.TypeExpense), "transaction type (Expense, Income, Transfer)")
	cmd.Flags().String("category", "", "category name")
	cmd.Flags().String("source", "", "source account name")
	cmd.Flags().String("destination", "", "destination account name")
	cmd.Flags().String("notes", "", "free-text note")
	cmd.Flags().String("split", "", "portion of an expense owed by others (Splitwise)")
	cmd.Flags().String("date", "", "transaction date (YYYY-MM-DD, default today)")
	return cmd
}

func txListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			account, _ := cmd.Flags().GetString("account")

			_, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.TransactionFilter{Limit: limit}
			if account != "" {
				filter.Accounts = []string{account}
			}

			page, err := store.ListTransactions(cmd.Context(), userID, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tCATEGORY\tACCOUNTS\tID")
			for _, txn := range page.Items {
				accounts := txn.Source
				if txn.Destination != "" {
					if accounts != "" {
						accounts += " -> "
					}
					accounts += txn.Destination
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.Date.Format("2006-01-02"), txn.Type, txn.Amount.String(),
					txn.Category, accounts, txn.ID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Println("(more results available)")
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum rows to print")
	cmd.Flags().String("account", "", "only transactions touching this account")
	return cmd
}

func txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete transactions and reverse their effects",
		Long: `Delete one or more transactions.

Balances and analytics are rolled back exactly as if the transactions
had never been recorded. The batch is all-or-nothing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := engine.DeleteTransactions(cmd.Context(), userID, args); err != nil {
				return err
			}
			fmt.Printf("Deleted %d transaction(s)\n", len(args))
			return nil
		},
	}
}
