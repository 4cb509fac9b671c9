package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/model"
)

// GetAggregate returns the rollup for one period. An absent period is not
// an error: it returns an empty aggregate, since periods only materialize
// once a transaction touches them.
func (s *SQLiteStorage) GetAggregate(ctx context.Context, userID string, kind model.PeriodKind, period string) (*model.PeriodAggregate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(period, "period"); err != nil {
		return nil, err
	}

	agg := model.NewPeriodAggregate(userID, kind, period)

	var totalIncome, totalExpense string
	err := s.db.QueryRowContext(ctx, `
		SELECT total_income, total_expense, num_income, num_expense, num_transfer
		FROM aggregates
		WHERE user_id = ? AND period_kind = ? AND period = ?`,
		userID, kind, period).Scan(
		&totalIncome, &totalExpense,
		&agg.NumIncomeTransactions, &agg.NumExpenseTransactions, &agg.NumTransferTransactions)
	if err == sql.ErrNoRows {
		return agg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregate: %w", err)
	}

	if agg.TotalIncome, err = decimal.NewFromString(totalIncome); err != nil {
		return nil, fmt.Errorf("invalid stored total income %q: %w", totalIncome, err)
	}
	if agg.TotalExpense, err = decimal.NewFromString(totalExpense); err != nil {
		return nil, fmt.Errorf("invalid stored total expense %q: %w", totalExpense, err)
	}

	if err := s.loadCategoryTotals(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *SQLiteStorage) loadCategoryTotals(ctx context.Context, agg *model.PeriodAggregate) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_type, category, total
		FROM aggregate_category_totals
		WHERE user_id = ? AND period_kind = ? AND period = ?`,
		agg.UserID, agg.Kind, agg.Period)
	if err != nil {
		return fmt.Errorf("failed to query category totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var txType model.TransactionType
		var category, totalStr string
		if err := rows.Scan(&txType, &category, &totalStr); err != nil {
			return fmt.Errorf("failed to scan category total: %w", err)
		}
		total, err := decimal.NewFromString(totalStr)
		if err != nil {
			return fmt.Errorf("invalid stored category total %q: %w", totalStr, err)
		}
		switch txType {
		case model.TypeIncome:
			agg.IncomeCategoryTotals[category] = total
		case model.TypeExpense:
			agg.ExpenseCategoryTotals[category] = total
		case model.TypeTransfer:
			agg.TransferCategoryTotals[category] = total
		}
	}
	return rows.Err()
}

// ListAggregates returns the materialized rollups with period keys in
// [from, to], ordered by period. Periods never touched by a transaction
// are simply absent.
func (s *SQLiteStorage) ListAggregates(ctx context.Context, userID string, kind model.PeriodKind, from, to string) ([]model.PeriodAggregate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT period, total_income, total_expense, num_income, num_expense, num_transfer
		FROM aggregates
		WHERE user_id = ? AND period_kind = ? AND period >= ? AND period <= ?
		ORDER BY period`, userID, kind, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var aggregates []model.PeriodAggregate
	for rows.Next() {
		agg := model.NewPeriodAggregate(userID, kind, "")
		var totalIncome, totalExpense string
		if err := rows.Scan(&agg.Period, &totalIncome, &totalExpense,
			&agg.NumIncomeTransactions, &agg.NumExpenseTransactions, &agg.NumTransferTransactions); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		if agg.TotalIncome, err = decimal.NewFromString(totalIncome); err != nil {
			return nil, fmt.Errorf("invalid stored total income %q: %w", totalIncome, err)
		}
		if agg.TotalExpense, err = decimal.NewFromString(totalExpense); err != nil {
			return nil, fmt.Errorf("invalid stored total expense %q: %w", totalExpense, err)
		}
		aggregates = append(aggregates, *agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregates: %w", err)
	}

	for i := range aggregates {
		if err := s.loadCategoryTotals(ctx, &aggregates[i]); err != nil {
			return nil, err
		}
	}

	slog.Debug("listed aggregates", "kind", kind, "count", len(aggregates))
	return aggregates, nil
}

// applyAggregateDelta merge-upserts one period's rollup row and its
// per-category totals. An absent row is created with the delta as its
// initial values; rows are never deleted, even at zero.
func applyAggregateDelta(ctx context.Context, ex executor, userID string, kind model.PeriodKind, period string, delta model.AggregateDelta) error {
	var totalIncome, totalExpense string
	var numIncome, numExpense, numTransfer int64

	err := ex.QueryRowContext(ctx, `
		SELECT total_income, total_expense, num_income, num_expense, num_transfer
		FROM aggregates
		WHERE user_id = ? AND period_kind = ? AND period = ?`,
		userID, kind, period).Scan(&totalIncome, &totalExpense, &numIncome, &numExpense, &numTransfer)

	switch {
	case err == sql.ErrNoRows:
		_, err = ex.ExecContext(ctx, `
			INSERT INTO aggregates (user_id, period_kind, period, total_income, total_expense, num_income, num_expense, num_transfer)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, kind, period,
			delta.TotalIncome.String(), delta.TotalExpense.String(),
			delta.NumIncomeTransactions, delta.NumExpenseTransactions, delta.NumTransferTransactions)
		if err != nil {
			return fmt.Errorf("failed to insert aggregate %s/%s: %w", kind, period, err)
		}
	case err != nil:
		return fmt.Errorf("failed to read aggregate %s/%s: %w", kind, period, err)
	default:
		income, parseErr := decimal.NewFromString(totalIncome)
		if parseErr != nil {
			return fmt.Errorf("invalid stored total income %q: %w", totalIncome, parseErr)
		}
		expense, parseErr := decimal.NewFromString(totalExpense)
		if parseErr != nil {
			return fmt.Errorf("invalid stored total expense %q: %w", totalExpense, parseErr)
		}

		_, err = ex.ExecContext(ctx, `
			UPDATE aggregates
			SET total_income = ?, total_expense = ?, num_income = ?, num_expense = ?, num_transfer = ?
			WHERE user_id = ? AND period_kind = ? AND period = ?`,
			income.Add(delta.TotalIncome).String(),
			expense.Add(delta.TotalExpense).String(),
			numIncome+delta.NumIncomeTransactions,
			numExpense+delta.NumExpenseTransactions,
			numTransfer+delta.NumTransferTransactions,
			userID, kind, period)
		if err != nil {
			return fmt.Errorf("failed to update aggregate %s/%s: %w", kind, period, err)
		}
	}

	if err := applyCategoryTotals(ctx, ex, userID, kind, period, model.TypeIncome, delta.IncomeCategoryTotals); err != nil {
		return err
	}
	if err := applyCategoryTotals(ctx, ex, userID, kind, period, model.TypeExpense, delta.ExpenseCategoryTotals); err != nil {
		return err
	}
	return applyCategoryTotals(ctx, ex, userID, kind, period, model.TypeTransfer, delta.TransferCategoryTotals)
}

func applyCategoryTotals(ctx context.Context, ex executor, userID string, kind model.PeriodKind, period string, txType model.TransactionType, totals map[string]decimal.Decimal) error {
	for category, delta := range totals {
		var current string
		err := ex.QueryRowContext(ctx, `
			SELECT total FROM aggregate_category_totals
			WHERE user_id = ? AND period_kind = ? AND period = ? AND transaction_type = ? AND category = ?`,
			userID, kind, period, txType, category).Scan(&current)

		switch {
		case err == sql.ErrNoRows:
			_, err = ex.ExecContext(ctx, `
				INSERT INTO aggregate_category_totals (user_id, period_kind, period, transaction_type, category, total)
				VALUES (?, ?, ?, ?, ?, ?)`,
				userID, kind, period, txType, category, delta.String())
			if err != nil {
				return fmt.Errorf("failed to insert category total %s/%s: %w", period, category, err)
			}
		case err != nil:
			return fmt.Errorf("failed to read category total %s/%s: %w", period, category, err)
		default:
			total, parseErr := decimal.NewFromString(current)
			if parseErr != nil {
				return fmt.Errorf("invalid stored category total %q: %w", current, parseErr)
			}
			_, err = ex.ExecContext(ctx, `
				UPDATE aggregate_category_totals SET total = ?
				WHERE user_id = ? AND period_kind = ? AND period = ? AND transaction_type = ? AND category = ?`,
				total.Add(delta).String(), userID, kind, period, txType, category)
			if err != nil {
				return fmt.Errorf("failed to update category total %s/%s: %w", period, category, err)
			}
		}
	}
	return nil
}
