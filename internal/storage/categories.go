package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kharcha-app/kharcha/internal/model"
)

// GetCategories returns all of a user's categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, transaction_type, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.TransactionType, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// SaveCategory inserts a new category or updates an existing one.
// Renames do not touch transactions already referencing the old name.
func (s *SQLiteStorage) SaveCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, transaction_type = ?
		WHERE user_id = ? AND id = ?`,
		category.Name, category.TransactionType, category.UserID, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, transaction_type)
		VALUES (?, ?, ?, ?)`,
		category.ID, category.UserID, category.Name, category.TransactionType)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	slog.Info("saved category", "id", category.ID, "name", category.Name)
	return nil
}

// DeleteCategories removes categories by id without recategorizing the
// transactions that reference them.
func (s *SQLiteStorage) DeleteCategories(ctx context.Context, userID string, ids []string) error {
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
		`DELETE FROM categories WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete categories: %w", err)
	}

	slog.Info("deleted categories", "count", len(ids))
	return nil
}
