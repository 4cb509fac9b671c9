package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/model"
)

// balanceDelta is one signed adjustment to a named account's balance.
// Splitwise deltas carry no name: the target is whichever account has
// type Splitwise, resolved inside the storage transaction at apply time.
type balanceDelta struct {
	account   string
	delta     decimal.Decimal
	splitwise bool
}

// forwardBalanceDeltas returns the balance adjustments a committed
// transaction applies:
//
//	Expense:  source −amount, splitwise +splitAmount (when split > 0)
//	Income:   destination +amount
//	Transfer: source −amount, destination +amount
func forwardBalanceDeltas(txn *model.Transaction) []balanceDelta {
	var deltas []balanceDelta
	switch txn.Type {
	case model.TypeExpense:
		deltas = append(deltas, balanceDelta{account: txn.Source, delta: txn.Amount.Neg()})
		if txn.SplitAmount.IsPositive() {
			deltas = append(deltas, balanceDelta{splitwise: true, delta: txn.SplitAmount})
		}
	case model.TypeIncome:
		deltas = append(deltas, balanceDelta{account: txn.Destination, delta: txn.Amount})
	case model.TypeTransfer:
		deltas = append(deltas, balanceDelta{account: txn.Source, delta: txn.Amount.Neg()})
		deltas = append(deltas, balanceDelta{account: txn.Destination, delta: txn.Amount})
	}
	return deltas
}

// reverseBalanceDeltas negates every forward delta, undoing the
// transaction's effect on balances.
func reverseBalanceDeltas(txn *model.Transaction) []balanceDelta {
	deltas := forwardBalanceDeltas(txn)
	for i := range deltas {
		deltas[i].delta = deltas[i].delta.Neg()
	}
	return deltas
}

// forwardAggregateDelta returns the rollup adjustment a committed
// transaction applies to each of its period buckets. Expenses contribute
// the net expense amount (gross minus split): the split portion is owed by
// third parties and is not the user's own spending. Transfers touch only
// their category totals and count: they are balance-neutral across the
// user's accounts and must not inflate income or spending totals.
//
// The reverse is Neg(); Update composes reverse(old) then forward(new), so
// counts net to zero when the type and period are unchanged and migrate
// correctly when they are not.
func forwardAggregateDelta(txn *model.Transaction) model.AggregateDelta {
	var delta model.AggregateDelta
	switch txn.Type {
	case model.TypeExpense:
		amount := txn.ExpenseAmount()
		delta.TotalExpense = amount
		delta.NumExpenseTransactions = 1
		delta.ExpenseCategoryTotals = map[string]decimal.Decimal{txn.Category: amount}
	case model.TypeIncome:
		delta.TotalIncome = txn.Amount
		delta.NumIncomeTransactions = 1
		delta.IncomeCategoryTotals = map[string]decimal.Decimal{txn.Category: txn.Amount}
	case model.TypeTransfer:
		delta.NumTransferTransactions = 1
		delta.TransferCategoryTotals = map[string]decimal.Decimal{txn.Category: txn.Amount}
	}
	return delta
}
