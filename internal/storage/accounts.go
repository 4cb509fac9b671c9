package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/common"
	"github.com/kharcha-app/kharcha/internal/model"
)

// GetAccounts returns all of a user's accounts ordered by name.
func (s *SQLiteStorage) GetAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, balance, created_at
		FROM accounts
		WHERE user_id = ?
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	slog.Debug("retrieved accounts", "count", len(accounts))
	return accounts, nil
}

// GetAccountByName returns a user's account by name, or nil when no such
// account exists.
func (s *SQLiteStorage) GetAccountByName(ctx context.Context, userID, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	account, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, balance, created_at
		FROM accounts
		WHERE user_id = ? AND name = ?`, userID, name))
	if err == sql.ErrNoRows {
		return nil, nil // Account not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var account model.Account
	var balance string
	err := row.Scan(&account.ID, &account.UserID, &account.Name, &account.Type, &balance, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid stored balance %q: %w", balance, err)
	}
	return &account, nil
}

// SaveAccount inserts a new account or updates the name and type of an
// existing one. Balances are never written here: they move only through
// committed transaction deltas.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?
		WHERE user_id = ? AND id = ?`,
		account.Name, account.Type, account.UserID, account.ID)
	if err != nil {
		return wrapAccountErr(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, type, balance)
		VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.UserID, account.Name, account.Type, account.Balance.String())
	if err != nil {
		return wrapAccountErr(err)
	}

	slog.Info("saved account", "id", account.ID, "name", account.Name, "type", account.Type)
	return nil
}

func wrapAccountErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("account name already in use: %w", common.ErrDuplicateEntry)
	}
	return fmt.Errorf("failed to save account: %w", err)
}

// DeleteAccounts removes accounts by id. Transactions referencing the
// deleted names are left untouched; their balance effects were already
// applied and future edits simply drop the orphaned deltas.
func (s *SQLiteStorage) DeleteAccounts(ctx context.Context, userID string, ids []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateIDs(ids); err != nil {
		return err
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete accounts: %w", err)
	}

	slog.Info("deleted accounts", "count", len(ids))
	return nil
}

// applyBalanceDelta applies a signed delta to the named account's balance.
// A name that resolves to no account drops the delta without error: the
// transaction may reference an account that was renamed or deleted since,
// and the system does not attempt to repair orphaned references.
func applyBalanceDelta(ctx context.Context, ex executor, userID, accountName string, delta decimal.Decimal) error {
	if accountName == "" || delta.IsZero() {
		return nil
	}

	var id, balance string
	err := ex.QueryRowContext(ctx,
		`SELECT id, balance FROM accounts WHERE user_id = ? AND name = ?`,
		userID, accountName).Scan(&id, &balance)
	if err == sql.ErrNoRows {
		slog.Debug("dropping balance delta for unknown account", "account", accountName)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read balance of %s: %w", accountName, err)
	}

	current, err := decimal.NewFromString(balance)
	if err != nil {
		return fmt.Errorf("invalid stored balance %q: %w", balance, err)
	}

	_, err = ex.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`,
		current.Add(delta).String(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance of %s: %w", accountName, err)
	}
	return nil
}

// findSplitwiseAccount resolves the user's Splitwise-typed account. The
// account save path keeps the type unique per user; ordering by name makes
// the lookup deterministic should legacy data hold more than one.
func findSplitwiseAccount(ctx context.Context, ex executor, userID string) (*model.Account, error) {
	account, err := scanAccount(ex.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, balance, created_at
		FROM accounts
		WHERE user_id = ? AND type = ?
		ORDER BY name LIMIT 1`, userID, model.AccountTypeSplitwise))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query splitwise account: %w", err)
	}
	return account, nil
}
