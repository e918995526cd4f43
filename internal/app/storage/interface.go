//go:generate mockgen -source=./interface.go -destination=./mock/storage.go -package=storagemock
package storage

import (
	"context"
	"time"

	"camptrade/internal/app/model"
)

type TransactionRepository interface {
	// NewID allocates an identifier for a transaction that is about to be created
	NewID(ctx context.Context) (string, error)
	// Create a new model.Transaction
	Create(ctx context.Context, m *model.Transaction) error
	// Read instance of model.Transaction
	Read(ctx context.Context, id string) (*model.Transaction, error)
	// Approve moves a requested transaction to approved, apperr.ErrConflict otherwise
	Approve(ctx context.Context, id string, at time.Time) error
	// Complete consumes the credential of a verifiable transaction and stores the pending settlement
	// in one step, apperr.ErrConflict if the transaction is not verifiable anymore
	Complete(ctx context.Context, id string, at time.Time, s *model.Settlement) error
	// AllByUserID returns all transactions where the user is buyer or seller
	AllByUserID(ctx context.Context, userID string) ([]*model.Transaction, error)
}

type SettlementRepository interface {
	// Read the settlement of a transaction
	Read(ctx context.Context, transactionID string) (*model.Settlement, error)
	// Pending returns unsettled settlements created before the given time
	Pending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Settlement, error)
	// MarkSettled records that every side effect has been applied
	MarkSettled(ctx context.Context, transactionID string, at time.Time) error
}

type RewardRepository interface {
	// Award adds points to the user balance once per transaction, returns false when already awarded
	Award(ctx context.Context, transactionID string, userID string, points int64) (bool, error)
	// Balance of the user, zero for unknown users
	Balance(ctx context.Context, userID string) (int64, error)
}

type CatalogStore interface {
	// DeleteListing removes a listing, deleting an absent listing is not an error
	DeleteListing(ctx context.Context, namespace string, itemID string) error
}
