package ledger

import (
	"fmt"
	"strings"

	"github.com/kharcha-app/kharcha/internal/common"
	"github.com/kharcha-app/kharcha/internal/model"
)

// normalizeTransaction validates caller-supplied transaction data and fills
// the derived fields. It runs before any storage call, so a validation
// failure can never leave partial state behind.
func normalizeTransaction(userID string, txn *model.Transaction) error {
	txn.UserID = userID
	txn.Category = strings.TrimSpace(txn.Category)
	txn.Source = strings.TrimSpace(txn.Source)
	txn.Destination = strings.TrimSpace(txn.Destination)

	if !txn.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", common.ErrValidation, txn.Type)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	}
	if txn.SplitAmount.IsNegative() {
		return fmt.Errorf("%w: split amount cannot be negative", common.ErrValidation)
	}
	if txn.Category == "" {
		return fmt.Errorf("%w: category is required", common.ErrValidation)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: date is required", common.ErrValidation)
	}

	switch txn.Type {
	case model.TypeExpense:
		if txn.Source == "" {
			return fmt.Errorf("%w: source account is required for an expense", common.ErrValidation)
		}
		if txn.SplitAmount.GreaterThan(txn.Amount) {
			return fmt.Errorf("%w: split amount cannot exceed amount", common.ErrValidation)
		}
		txn.Destination = ""
	case model.TypeIncome:
		if txn.Destination == "" {
			return fmt.Errorf("%w: destination account is required for income", common.ErrValidation)
		}
		if !txn.SplitAmount.IsZero() {
			return fmt.Errorf("%w: split amount applies only to expenses", common.ErrValidation)
		}
		txn.Source = ""
	case model.TypeTransfer:
		if txn.Source == "" {
			return fmt.Errorf("%w: source account is required for a transfer", common.ErrValidation)
		}
		if txn.Destination == "" {
			return fmt.Errorf("%w: destination account is required for a transfer", common.ErrValidation)
		}
		if !txn.SplitAmount.IsZero() {
			return fmt.Errorf("%w: split amount applies only to expenses", common.ErrValidation)
		}
	}

	// Period keys are derived from the stored date; normalizing to UTC up
	// front keeps the keys identical between create and later edit/delete
	// reads, which reversibility depends on.
	txn.Date = txn.Date.UTC()
	txn.InvolvedAccounts = txn.ComputeInvolvedAccounts()
	return nil
}

func validateAccountInput(account *model.Account) error {
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return fmt.Errorf("%w: account name is required", common.ErrValidation)
	}
	if strings.TrimSpace(string(account.Type)) == "" {
		return fmt.Errorf("%w: account type is required", common.ErrValidation)
	}
	return nil
}

func validateCategoryInput(category *model.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", common.ErrValidation)
	}
	if !category.TransactionType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", common.ErrValidation, category.TransactionType)
	}
	return nil
}
