// Package service defines the interfaces between the ledger engine and the
// persistence layer.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/model"
)

// TransactionFilter defines filtering and paging options for transaction
// queries. Search is matched against category and notes of the fetched page
// only, not store-wide; a filtered page can therefore under-match rows that
// pagination excluded. That is a documented limitation of the listing
// surface, inherited from the product's behavior.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Types     []model.TransactionType
	Accounts  []string
	Search    string
	SortBy    string // "date" (default) or "amount"
	Ascending bool
	Cursor    string
	Limit     int
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	NextCursor string
	Items      []model.Transaction
	HasMore    bool
}

// Storage defines the contract for the persistence layer. All operations
// are scoped to a user id; no call may observe another user's data.
type Storage interface {
	// Tx begins an atomic unit covering reads and writes of transactions,
	// balances and aggregates. Every ledger mutation runs inside one Tx.
	BeginTx(ctx context.Context) (Tx, error)

	// Transaction reads.
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) (*TransactionPage, error)

	// Account operations.
	GetAccounts(ctx context.Context, userID string) ([]model.Account, error)
	GetAccountByName(ctx context.Context, userID, name string) (*model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error
	DeleteAccounts(ctx context.Context, userID string, ids []string) error

	// Category operations.
	GetCategories(ctx context.Context, userID string) ([]model.Category, error)
	SaveCategory(ctx context.Context, category *model.Category) error
	DeleteCategories(ctx context.Context, userID string, ids []string) error

	// Analytics reads.
	GetAggregate(ctx context.Context, userID string, kind model.PeriodKind, period string) (*model.PeriodAggregate, error)
	ListAggregates(ctx context.Context, userID string, kind model.PeriodKind, from, to string) ([]model.PeriodAggregate, error)

	// Migrate brings the schema up to the expected version.
	Migrate(ctx context.Context) error

	// Close releases the underlying database.
	Close() error
}

// Tx is a single atomic storage transaction. Reads inside a Tx observe
// committed state and serialize against concurrent writers of the same
// rows; either every write in the Tx commits or none do.
type Tx interface {
	Commit() error
	Rollback() error

	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error

	// ApplyBalanceDelta adjusts the named account's balance. A name that
	// resolves to no account drops the delta silently (orphan tolerance).
	ApplyBalanceDelta(ctx context.Context, userID, accountName string, delta decimal.Decimal) error

	// FindSplitwiseAccount resolves the user's Splitwise-typed account
	// inside the transaction. Returns nil when none exists.
	FindSplitwiseAccount(ctx context.Context, userID string) (*model.Account, error)

	// ApplyAggregateDelta merge-upserts a period rollup: an absent row is
	// created with the delta as its initial values.
	ApplyAggregateDelta(ctx context.Context, userID string, kind model.PeriodKind, period string, delta model.AggregateDelta) error
}
