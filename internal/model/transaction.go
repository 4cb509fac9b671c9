// Package model defines the core domain types for the kharcha ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the financial direction of a transaction.
type TransactionType string

const (
	// TypeExpense represents money leaving one of the user's accounts.
	TypeExpense TransactionType = "Expense"
	// TypeIncome represents money entering one of the user's accounts.
	TypeIncome TransactionType = "Income"
	// TypeTransfer represents money moving between two of the user's accounts.
	TypeTransfer TransactionType = "Transfer"
)

// Valid reports whether t is one of the three known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return true
	default:
		return false
	}
}

// Transaction represents a single financial event in a user's ledger.
//
// Source and Destination reference accounts by name, not by id: renaming or
// deleting an account leaves historical transactions pointing at the old
// name, and balance deltas against unresolvable names are dropped rather
// than treated as errors.
type Transaction struct {
	Date             time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ID               string
	UserID           string
	Category         string
	Source           string // empty for Income
	Destination      string // empty for Expense
	Notes            string
	InvolvedAccounts []string
	Type             TransactionType
	Amount           decimal.Decimal
	SplitAmount      decimal.Decimal
}

// ExpenseAmount returns the portion of an Expense actually borne by the
// user: Amount minus the split attributed to the Splitwise account. For
// Income and Transfer it is simply Amount.
func (t *Transaction) ExpenseAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Sub(t.SplitAmount)
	}
	return t.Amount
}

// ComputeInvolvedAccounts derives the denormalized account-name index used
// for "touches account X" filtering without joining against accounts.
func (t *Transaction) ComputeInvolvedAccounts() []string {
	var involved []string
	switch t.Type {
	case TypeExpense:
		if t.Source != "" {
			involved = append(involved, t.Source)
		}
	case TypeIncome:
		if t.Destination != "" {
			involved = append(involved, t.Destination)
		}
	case TypeTransfer:
		if t.Source != "" {
			involved = append(involved, t.Source)
		}
		if t.Destination != "" {
			involved = append(involved, t.Destination)
		}
	}
	return involved
}

// MonthKey returns the monthly analytics bucket for the transaction's date.
func (t *Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}

// DayKey returns the daily analytics bucket for the transaction's date.
func (t *Transaction) DayKey() string {
	return t.Date.Format("2006-01-02")
}
