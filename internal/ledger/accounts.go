package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kharcha-app/kharcha/internal/common"
	"github.com/kharcha-app/kharcha/internal/model"
)

// SaveAccount creates or edits an account. At most one account per user may
// have type Splitwise: the engine's split bookkeeping resolves that account
// implicitly, and a second one would make the resolution ambiguous.
// Editing never writes the balance; it moves only through committed
// transaction deltas. Renames are cosmetic: historical transactions keep
// the old name and their future deltas are dropped as orphaned.
func (e *Engine) SaveAccount(ctx context.Context, userID string, account model.Account) (*model.Account, error) {
	account.UserID = userID
	if err := validateAccountInput(&account); err != nil {
		return nil, err
	}

	if account.Type == model.AccountTypeSplitwise {
		existing, err := e.store.GetAccounts(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, other := range existing {
			if other.Type == model.AccountTypeSplitwise && other.ID != account.ID {
				return nil, fmt.Errorf("%w: a Splitwise account already exists (%s)", common.ErrValidation, other.Name)
			}
		}
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	if err := e.store.SaveAccount(ctx, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteAccounts removes accounts by id. Transactions referencing them are
// deliberately left alone; see SaveAccount on orphaned references.
func (e *Engine) DeleteAccounts(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no account ids given", common.ErrValidation)
	}
	if err := e.store.DeleteAccounts(ctx, userID, ids); err != nil {
		return err
	}
	slog.Info("deleted accounts", "count", len(ids))
	return nil
}

// SaveCategory creates or edits a category.
func (e *Engine) SaveCategory(ctx context.Context, userID string, category model.Category) (*model.Category, error) {
	category.UserID = userID
	if err := validateCategoryInput(&category); err != nil {
		return nil, err
	}

	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	if err := e.store.SaveCategory(ctx, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategories removes categories by id. Existing transactions keep
// their category names unchanged.
func (e *Engine) DeleteCategories(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no category ids given", common.ErrValidation)
	}
	if err := e.store.DeleteCategories(ctx, userID, ids); err != nil {
		return err
	}
	slog.Info("deleted categories", "count", len(ids))
	return nil
}
