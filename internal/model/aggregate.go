package model

import "github.com/shopspring/decimal"

// PeriodKind distinguishes monthly from daily analytics rollups.
type PeriodKind string

const (
	// PeriodMonthly keys aggregates by YYYY-MM.
	PeriodMonthly PeriodKind = "monthly"
	// PeriodDaily keys aggregates by YYYY-MM-DD.
	PeriodDaily PeriodKind = "daily"
)

// PeriodAggregate is a pre-computed per-period analytics rollup, maintained
// incrementally by the ledger engine rather than recomputed from the full
// transaction log on read. Rows persist once created, even when every total
// has returned to zero.
type PeriodAggregate struct {
	IncomeCategoryTotals   map[string]decimal.Decimal
	ExpenseCategoryTotals  map[string]decimal.Decimal
	TransferCategoryTotals map[string]decimal.Decimal
	UserID                 string
	Period                 string
	Kind                   PeriodKind
	TotalIncome            decimal.Decimal
	TotalExpense           decimal.Decimal
	NumIncomeTransactions  int64
	NumExpenseTransactions int64
	NumTransferTransactions int64
}

// NewPeriodAggregate returns an empty rollup for the given period.
func NewPeriodAggregate(userID string, kind PeriodKind, period string) *PeriodAggregate {
	return &PeriodAggregate{
		UserID:                 userID,
		Kind:                   kind,
		Period:                 period,
		IncomeCategoryTotals:   make(map[string]decimal.Decimal),
		ExpenseCategoryTotals:  make(map[string]decimal.Decimal),
		TransferCategoryTotals: make(map[string]decimal.Decimal),
	}
}

// AggregateDelta is a signed adjustment to a single period's rollup. The
// reverse of a delta is its negation; applying a delta and then its reverse
// restores the rollup's exact prior values.
type AggregateDelta struct {
	IncomeCategoryTotals   map[string]decimal.Decimal
	ExpenseCategoryTotals  map[string]decimal.Decimal
	TransferCategoryTotals map[string]decimal.Decimal
	TotalIncome            decimal.Decimal
	TotalExpense           decimal.Decimal
	NumIncomeTransactions  int64
	NumExpenseTransactions int64
	NumTransferTransactions int64
}

// IsZero reports whether applying the delta would change nothing.
func (d AggregateDelta) IsZero() bool {
	return d.TotalIncome.IsZero() && d.TotalExpense.IsZero() &&
		d.NumIncomeTransactions == 0 && d.NumExpenseTransactions == 0 &&
		d.NumTransferTransactions == 0 &&
		len(d.IncomeCategoryTotals) == 0 &&
		len(d.ExpenseCategoryTotals) == 0 &&
		len(d.TransferCategoryTotals) == 0
}

// Neg returns the reverse delta.
func (d AggregateDelta) Neg() AggregateDelta {
	return AggregateDelta{
		TotalIncome:             d.TotalIncome.Neg(),
		TotalExpense:            d.TotalExpense.Neg(),
		NumIncomeTransactions:   -d.NumIncomeTransactions,
		NumExpenseTransactions:  -d.NumExpenseTransactions,
		NumTransferTransactions: -d.NumTransferTransactions,
		IncomeCategoryTotals:    negTotals(d.IncomeCategoryTotals),
		ExpenseCategoryTotals:   negTotals(d.ExpenseCategoryTotals),
		TransferCategoryTotals:  negTotals(d.TransferCategoryTotals),
	}
}

func negTotals(totals map[string]decimal.Decimal) map[string]decimal.Decimal {
	if totals == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(totals))
	for category, total := range totals {
		out[category] = total.Neg()
	}
	return out
}
