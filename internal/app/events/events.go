// Package events publishes exchange lifecycle events to downstream consumers.
package events

import (
	"context"
	"time"
)

const TypeTransactionCompleted = "transaction.completed"

type Event struct {
	Type                string    `json:"type"`
	TransactionID       string    `json:"transactionId"`
	ItemID              string    `json:"itemId"`
	Namespace           string    `json:"namespace"`
	BuyerID             string    `json:"buyerId"`
	SellerID            string    `json:"sellerId"`
	BuyerPointsAwarded  int64     `json:"buyerPointsAwarded"`
	SellerPointsAwarded int64     `json:"sellerPointsAwarded"`
	OccurredAt          time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

var _ Publisher = Nop{}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error {
	return nil
}

func (Nop) Close() error {
	return nil
}
