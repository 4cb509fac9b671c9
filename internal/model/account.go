package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType categorizes an account. The set is open: users may define
// their own labels. Only Splitwise carries engine semantics (it receives
// the split portion of shared expenses).
type AccountType string

const (
	// AccountTypeBank is a regular bank account.
	AccountTypeBank AccountType = "Bank"
	// AccountTypeCreditCard is a credit card account.
	AccountTypeCreditCard AccountType = "Credit Card"
	// AccountTypeWallet is a cash/wallet account.
	AccountTypeWallet AccountType = "Wallet"
	// AccountTypeSplitwise is the shared-expense bookkeeping account.
	// At most one account of this type may exist per user.
	AccountTypeSplitwise AccountType = "Splitwise"
)

// Account holds a named account and its running balance. The balance is
// mutated exclusively through committed transaction deltas.
type Account struct {
	CreatedAt time.Time
	ID        string
	UserID    string
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
}
