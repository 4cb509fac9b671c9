package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/common"
	"github.com/kharcha-app/kharcha/internal/model"
	"github.com/kharcha-app/kharcha/internal/service"
)

const defaultPageSize = 50

const maxPageSize = 200

// GetTransaction retrieves a single transaction outside of any transaction
// boundary. Mutations must use the Tx variant so the reverse deltas are
// computed from fresh, isolated reads.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getTransaction(ctx, s.db, userID, id)
}

const transactionColumns = `id, user_id, type, amount, split_amount, category,
	source, destination, date, notes, involved_accounts, created_at, updated_at`

func getTransaction(ctx context.Context, ex executor, userID, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ? AND id = ?`

	txn, err := scanTransaction(ex.QueryRowContext(ctx, query, userID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount, splitAmount, involved string
	var source, destination, notes sql.NullString

	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.Type, &amount, &splitAmount, &txn.Category,
		&source, &destination, &txn.Date, &notes, &involved,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Source = source.String
	txn.Destination = destination.String
	txn.Notes = notes.String

	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	if txn.SplitAmount, err = decimal.NewFromString(splitAmount); err != nil {
		return nil, fmt.Errorf("invalid stored split amount %q: %w", splitAmount, err)
	}
	if err = json.Unmarshal([]byte(involved), &txn.InvolvedAccounts); err != nil {
		return nil, fmt.Errorf("invalid involved accounts %q: %w", involved, err)
	}
	return &txn, nil
}

func insertTransaction(ctx context.Context, ex executor, txn *model.Transaction) error {
	involved, err := json.Marshal(txn.InvolvedAccounts)
	if err != nil {
		return fmt.Errorf("failed to marshal involved accounts: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, type, amount, split_amount, category,
			source, destination, date, notes, involved_accounts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.Type, txn.Amount.String(), txn.SplitAmount.String(),
		txn.Category, nullable(txn.Source), nullable(txn.Destination),
		txn.Date, nullable(txn.Notes), string(involved),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	slog.Debug("inserted transaction", "id", txn.ID, "type", txn.Type)
	return nil
}

func updateTransaction(ctx context.Context, ex executor, txn *model.Transaction) error {
	involved, err := json.Marshal(txn.InvolvedAccounts)
	if err != nil {
		return fmt.Errorf("failed to marshal involved accounts: %w", err)
	}

	result, err := ex.ExecContext(ctx, `
		UPDATE transactions SET
			type = ?, amount = ?, split_amount = ?, category = ?,
			source = ?, destination = ?, date = ?, notes = ?,
			involved_accounts = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND id = ?`,
		txn.Type, txn.Amount.String(), txn.SplitAmount.String(), txn.Category,
		nullable(txn.Source), nullable(txn.Destination), txn.Date, nullable(txn.Notes),
		string(involved), txn.UserID, txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

func deleteTransaction(ctx context.Context, ex executor, userID, id string) error {
	result, err := ex.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListTransactions returns one page of a user's transactions matching the
// filter. Free-text search is applied to the fetched page only, after the
// store-level filters and pagination; see service.TransactionFilter.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, userID string, filter service.TransactionFilter) (*service.TransactionPage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset, err := decodeCursor(filter.Cursor)
	if err != nil {
		return nil, err
	}

	query, args := buildListQuery(userID, filter, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		items = append(items, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	// One extra row was requested to detect a following page.
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	if filter.Search != "" {
		items = filterBySearch(items, filter.Search)
	}

	page := &service.TransactionPage{
		Items:   items,
		HasMore: hasMore,
	}
	if hasMore {
		page.NextCursor = encodeCursor(offset + limit)
	}

	slog.Debug("listed transactions", "count", len(items), "has_more", hasMore)
	return page, nil
}

func buildListQuery(userID string, filter service.TransactionFilter, limit, offset int) (string, []any) {
	var b strings.Builder
	args := []any{userID}

	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`)

	if filter.StartDate != nil {
		b.WriteString(` AND date >= ?`)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.WriteString(` AND date <= ?`)
		args = append(args, *filter.EndDate)
	}
	if len(filter.Types) > 0 {
		b.WriteString(` AND type IN (` + placeholders(len(filter.Types)) + `)`)
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if len(filter.Accounts) > 0 {
		// involved_accounts is a JSON array of account names.
		b.WriteString(` AND EXISTS (
			SELECT 1 FROM json_each(transactions.involved_accounts)
			WHERE json_each.value IN (` + placeholders(len(filter.Accounts)) + `))`)
		for _, a := range filter.Accounts {
			args = append(args, a)
		}
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	switch filter.SortBy {
	case "amount":
		b.WriteString(` ORDER BY CAST(amount AS REAL) ` + direction + `, id ASC`)
	default:
		b.WriteString(` ORDER BY date ` + direction + `, id ASC`)
	}

	b.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, limit+1, offset)

	return b.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func filterBySearch(items []model.Transaction, search string) []model.Transaction {
	needle := strings.ToLower(search)
	matched := make([]model.Transaction, 0, len(items))
	for _, txn := range items {
		if strings.Contains(strings.ToLower(txn.Category), needle) ||
			strings.Contains(strings.ToLower(txn.Notes), needle) {
			matched = append(matched, txn)
		}
	}
	return matched
}

// Cursors are opaque to callers: an encoded offset into the stable
// (sort key, id) ordering of the filtered result set.
func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte("o:" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed cursor", common.ErrValidation)
	}
	value, ok := strings.CutPrefix(string(raw), "o:")
	if !ok {
		return 0, fmt.Errorf("%w: malformed cursor", common.ErrValidation)
	}
	offset, err := strconv.Atoi(value)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: malformed cursor", common.ErrValidation)
	}
	return offset, nil
}
