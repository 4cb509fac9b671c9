package model

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransaction_ExpenseAmount(t *testing.T) {
	tests := []struct {
		name        string
		txType      TransactionType
		amount      string
		splitAmount string
		want        string
	}{
		{
			name:        "expense without split",
			txType:      TypeExpense,
			amount:      "500",
			splitAmount: "0",
			want:        "500",
		},
		{
			name:        "expense with split excludes the split portion",
			txType:      TypeExpense,
			amount:      "100",
			splitAmount: "30",
			want:        "70",
		},
		{
			name:        "income ignores split",
			txType:      TypeIncome,
			amount:      "250",
			splitAmount: "0",
			want:        "250",
		},
		{
			name:        "transfer ignores split",
			txType:      TypeTransfer,
			amount:      "1000",
			splitAmount: "0",
			want:        "1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{
				Type:        tt.txType,
				Amount:      decimal.RequireFromString(tt.amount),
				SplitAmount: decimal.RequireFromString(tt.splitAmount),
			}
			got := txn.ExpenseAmount()
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ExpenseAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTransaction_ComputeInvolvedAccounts(t *testing.T) {
	tests := []struct {
		name        string
		txType      TransactionType
		source      string
		destination string
		want        []string
	}{
		{
			name:   "expense uses source only",
			txType: TypeExpense,
			source: "Checking",
			want:   []string{"Checking"},
		},
		{
			name:        "income uses destination only",
			txType:      TypeIncome,
			destination: "Checking",
			want:        []string{"Checking"},
		},
		{
			name:        "transfer uses both",
			txType:      TypeTransfer,
			source:      "Checking",
			destination: "Wallet",
			want:        []string{"Checking", "Wallet"},
		},
		{
			name:   "blank names are filtered",
			txType: TypeTransfer,
			source: "Checking",
			want:   []string{"Checking"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{Type: tt.txType, Source: tt.source, Destination: tt.destination}
			got := txn.ComputeInvolvedAccounts()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ComputeInvolvedAccounts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransaction_PeriodKeys(t *testing.T) {
	txn := Transaction{Date: time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)}

	if got := txn.MonthKey(); got != "2024-03" {
		t.Errorf("MonthKey() = %q, want %q", got, "2024-03")
	}
	if got := txn.DayKey(); got != "2024-03-15" {
		t.Errorf("DayKey() = %q, want %q", got, "2024-03-15")
	}
}

func TestAggregateDelta_Neg(t *testing.T) {
	delta := AggregateDelta{
		TotalExpense:           decimal.RequireFromString("70"),
		NumExpenseTransactions: 1,
		ExpenseCategoryTotals: map[string]decimal.Decimal{
			"Groceries": decimal.RequireFromString("70"),
		},
	}

	neg := delta.Neg()
	if !neg.TotalExpense.Equal(decimal.RequireFromString("-70")) {
		t.Errorf("Neg().TotalExpense = %s, want -70", neg.TotalExpense)
	}
	if neg.NumExpenseTransactions != -1 {
		t.Errorf("Neg().NumExpenseTransactions = %d, want -1", neg.NumExpenseTransactions)
	}
	if !neg.ExpenseCategoryTotals["Groceries"].Equal(decimal.RequireFromString("-70")) {
		t.Errorf("Neg() category total = %s, want -70", neg.ExpenseCategoryTotals["Groceries"])
	}

	// Negating twice round-trips.
	back := neg.Neg()
	if !back.TotalExpense.Equal(delta.TotalExpense) || back.NumExpenseTransactions != delta.NumExpenseTransactions {
		t.Error("Neg().Neg() did not round-trip")
	}
}
