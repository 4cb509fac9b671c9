// Package ledger implements the consistency engine that keeps account
// balances and analytics rollups in lockstep with the transaction log.
//
// Every mutation (create, update, delete, balance adjustment) flows
// through this package and commits as one storage transaction: the
// transaction record, the balance deltas and the aggregate deltas move
// together or not at all. Updates and deletes first undo the old record's
// effect with reverse deltas computed from a fresh in-transaction read,
// never from caller-cached state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/common"
	"github.com/kharcha-app/kharcha/internal/model"
	"github.com/kharcha-app/kharcha/internal/service"
)

// User-visible failure messages.
const (
	msgSaveFailed   = "Failed to save transaction. Please try again."
	msgDeleteFailed = "Failed to delete transactions. Please try again."
)

// Engine orchestrates transaction mutations against the storage layer.
type Engine struct {
	store service.Storage
}

// New creates a new ledger engine backed by the given storage.
func New(store service.Storage) *Engine {
	return &Engine{store: store}
}

// CreateTransaction validates the input, assigns an id, and atomically
// commits the record together with its forward balance and aggregate
// deltas.
func (e *Engine) CreateTransaction(ctx context.Context, userID string, txn model.Transaction) (*model.Transaction, error) {
	if err := normalizeTransaction(userID, &txn); err != nil {
		return nil, err
	}
	txn.ID = uuid.NewString()

	start := time.Now()
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.saveFailure("create", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.InsertTransaction(ctx, &txn); err != nil {
		return nil, e.saveFailure("create", err)
	}
	if err := e.applyBalanceDeltas(ctx, tx, userID, forwardBalanceDeltas(&txn)); err != nil {
		return nil, e.saveFailure("create", err)
	}
	if err := applyAggregateDeltas(ctx, tx, &txn, forwardAggregateDelta(&txn)); err != nil {
		return nil, e.saveFailure("create", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.saveFailure("create", err)
	}

	mutationsTotal.WithLabelValues("create", "ok").Inc()
	commitDuration.Observe(time.Since(start).Seconds())
	slog.Info("created transaction",
		"id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount.String(),
		"month", txn.MonthKey())
	return &txn, nil
}

// UpdateTransaction atomically replaces a transaction: inside one storage
// transaction it re-reads the current record, reverses that record's
// balance and aggregate effects, applies the new record's forward effects,
// and rewrites the row. A date edit therefore touches up to four aggregate
// rows (old and new month, old and new day).
func (e *Engine) UpdateTransaction(ctx context.Context, userID, id string, txn model.Transaction) (*model.Transaction, error) {
	if err := normalizeTransaction(userID, &txn); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: transaction id is required", common.ErrValidation)
	}
	txn.ID = id

	start := time.Now()
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, e.saveFailure("update", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The reverse deltas depend on the committed record, which may differ
	// from whatever the caller has cached.
	before, err := tx.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, e.saveFailure("update", err)
	}

	if err := e.applyBalanceDeltas(ctx, tx, userID, reverseBalanceDeltas(before)); err != nil {
		return nil, e.saveFailure("update", err)
	}
	if err := applyAggregateDeltas(ctx, tx, before, forwardAggregateDelta(before).Neg()); err != nil {
		return nil, e.saveFailure("update", err)
	}

	if err := e.applyBalanceDeltas(ctx, tx, userID, forwardBalanceDeltas(&txn)); err != nil {
		return nil, e.saveFailure("update", err)
	}
	if err := applyAggregateDeltas(ctx, tx, &txn, forwardAggregateDelta(&txn)); err != nil {
		return nil, e.saveFailure("update", err)
	}

	if err := tx.UpdateTransaction(ctx, &txn); err != nil {
		return nil, e.saveFailure("update", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, e.saveFailure("update", err)
	}

	mutationsTotal.WithLabelValues("update", "ok").Inc()
	commitDuration.Observe(time.Since(start).Seconds())
	slog.Info("updated transaction", "id", id, "type", txn.Type)
	return &txn, nil
}

// DeleteTransactions removes one or more transactions and reverses their
// balance and aggregate effects, all in a single storage transaction. The
// batch is all-or-nothing: any missing id aborts every deletion.
func (e *Engine) DeleteTransactions(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no transaction ids given", common.ErrValidation)
	}

	start := time.Now()
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return e.deleteFailure(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		before, err := tx.GetTransaction(ctx, userID, id)
		if err != nil {
			return e.deleteFailure(err)
		}

		if err := e.applyBalanceDeltas(ctx, tx, userID, reverseBalanceDeltas(before)); err != nil {
			return e.deleteFailure(err)
		}
		if err := applyAggregateDeltas(ctx, tx, before, forwardAggregateDelta(before).Neg()); err != nil {
			return e.deleteFailure(err)
		}
		if err := tx.DeleteTransaction(ctx, userID, id); err != nil {
			return e.deleteFailure(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return e.deleteFailure(err)
	}

	mutationsTotal.WithLabelValues("delete", "ok").Inc()
	commitDuration.Observe(time.Since(start).Seconds())
	slog.Info("deleted transactions", "count", len(ids))
	return nil
}

// AdjustBalance reconciles an account's ledger balance against an observed
// real-world balance by synthesizing a corrective Income (difference > 0)
// or Expense (difference < 0) transaction and routing it through
// CreateTransaction. A zero difference is a no-op.
func (e *Engine) AdjustBalance(ctx context.Context, userID, accountName string, difference decimal.Decimal) (*model.Transaction, error) {
	if difference.IsZero() {
		return nil, nil
	}

	account, err := e.store.GetAccountByName(ctx, userID, accountName)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %q: %w", accountName, common.ErrNotFound)
	}

	txn := model.Transaction{
		Amount: difference.Abs(),
		Date:   time.Now().UTC(),
		Notes:  fmt.Sprintf("Balance adjustment for %s.", account.Name),
	}
	if difference.IsPositive() {
		txn.Type = model.TypeIncome
		txn.Category = "Income Adjustment"
		txn.Destination = account.Name
	} else {
		txn.Type = model.TypeExpense
		txn.Category = "Expense Adjustment"
		txn.Source = account.Name
	}

	created, err := e.CreateTransaction(ctx, userID, txn)
	if err != nil {
		return nil, err
	}

	slog.Info("adjusted balance",
		"account", account.Name,
		"difference", difference.String(),
		"transaction", created.ID)
	return created, nil
}

// applyBalanceDeltas resolves each delta's target account and applies it.
// Splitwise deltas resolve to the user's Splitwise-typed account inside
// the same storage transaction as the write; a delta whose target no
// longer exists is dropped.
func (e *Engine) applyBalanceDeltas(ctx context.Context, tx service.Tx, userID string, deltas []balanceDelta) error {
	for _, d := range deltas {
		name := d.account
		if d.splitwise {
			account, err := tx.FindSplitwiseAccount(ctx, userID)
			if err != nil {
				return err
			}
			if account == nil {
				slog.Debug("no splitwise account; dropping split delta", "delta", d.delta.String())
				continue
			}
			name = account.Name
		}
		if err := tx.ApplyBalanceDelta(ctx, userID, name, d.delta); err != nil {
			return err
		}
	}
	return nil
}

// applyAggregateDeltas applies one delta to both period buckets of the
// transaction's date.
func applyAggregateDeltas(ctx context.Context, tx service.Tx, txn *model.Transaction, delta model.AggregateDelta) error {
	if err := tx.ApplyAggregateDelta(ctx, txn.UserID, model.PeriodMonthly, txn.MonthKey(), delta); err != nil {
		return err
	}
	return tx.ApplyAggregateDelta(ctx, txn.UserID, model.PeriodDaily, txn.DayKey(), delta)
}

func (e *Engine) saveFailure(operation string, err error) error {
	mutationsTotal.WithLabelValues(operation, "error").Inc()
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation) {
		return err
	}
	return common.NewUserError(msgSaveFailed, err)
}

func (e *Engine) deleteFailure(err error) error {
	mutationsTotal.WithLabelValues("delete", "error").Inc()
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation) {
		return err
	}
	return common.NewUserError(msgDeleteFailed, err)
}
