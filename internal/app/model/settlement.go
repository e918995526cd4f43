package model

import "time"

const (
	BuyerRewardPoints  int64 = 10
	SellerRewardPoints int64 = 15
)

// Settlement marks a completed transaction whose side effects must be applied.
// It is pending until SettledAt is set.
type Settlement struct {
	TransactionID string
	BuyerID       string
	SellerID      string
	Category      ItemCategory
	ItemID        string
	CreatedAt     time.Time
	SettledAt     *time.Time
}

func NewSettlement(t *Transaction, at time.Time) *Settlement {
	return &Settlement{
		TransactionID: t.ID,
		BuyerID:       t.BuyerID,
		SellerID:      t.SellerID,
		Category:      t.Category,
		ItemID:        t.ItemID,
		CreatedAt:     at,
	}
}

type SettlementResult struct {
	BuyerPointsAwarded  int64 `json:"buyerPointsAwarded"`
	SellerPointsAwarded int64 `json:"sellerPointsAwarded"`
}
