package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kharcha-app/kharcha/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesDeleteCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(cmd.Context(), userID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tID")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.TransactionType, c.ID)
			}
			return w.Flush()
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txType, _ := cmd.Flags().GetString("type")

			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := engine.SaveCategory(cmd.Context(), userID, model.Category{
				Name:            args[0],
				TransactionType: model.TransactionType(txType),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created category %q (%s)\n", category.Name, category.ID)
			return nil
		},
	}
	cmd.Flags().String("type", string(model.TypeExpense), "transaction type (Expense, Income, Transfer)")
	return cmd
}

func categoriesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete categories by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, store, userID, err := initEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := engine.DeleteCategories(cmd.Context(), userID, args); err != nil {
				return err
			}
			fmt.Printf("Deleted %d categories\n", len(args))
			return nil
		},
	}
}
