package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kharcha-app/kharcha/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsDeleteCmd())
	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.GetAccounts(cmd.Context(), userID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tBALANCE\tID")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Type, a.Balance.String(), a.ID)
			}
			return w.Flush()
		},
	}
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountType, _ := cmd.Flags().GetString("type")

			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := engine.SaveAccount(cmd.Context(), userID, model.Account{
				Name: args[0],
				Type: model.AccountType(accountType),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created account %q (%s)\n", account.Name, account.ID)
			return nil
		},
	}
	cmd.Flags().String("type", string(model.AccountTypeBank), "account type (Bank, Credit Card, Wallet, Splitwise)")
	return cmd
}

func accountsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete accounts by id",
		Long: `Delete one or more accounts.

Transactions referencing a deleted account are kept; their future edits
simply skip the missing account's balance effect.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := engine.DeleteAccounts(cmd.Context(), userID, args); err != nil {
				return err
			}
			fmt.Printf("Deleted %d account(s)\n", len(args))
			return nil
		},
	}
}
