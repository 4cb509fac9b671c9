package model

import "time"

// Category labels transactions of exactly one transaction type.
// Transactions reference categories by name; deleting a category neither
// deletes nor recategorizes existing transactions.
type Category struct {
	CreatedAt       time.Time
	ID              string
	UserID          string
	Name            string
	TransactionType TransactionType
}
