package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusRequested       Status = "requested"
	StatusApproved        Status = "approved"
	StatusExchangePending Status = "exchange_pending"
	StatusCompleted       Status = "completed"
)

// Verifiable reports whether a credential may be checked in this status.
func (s Status) Verifiable() bool {
	return s == StatusApproved || s == StatusExchangePending
}

// ItemCategory is the kind of listing a transaction refers to.
type ItemCategory string

const (
	CategorySell   ItemCategory = "sell"
	CategoryRent   ItemCategory = "rent"
	CategoryDonate ItemCategory = "donate"
)

// ParseItemCategory returns an error for anything but sell, rent or donate.
func ParseItemCategory(s string) (ItemCategory, error) {
	switch c := ItemCategory(s); c {
	case CategorySell, CategoryRent, CategoryDonate:
		return c, nil
	}
	return "", fmt.Errorf("unknown item category %q", s)
}

// Namespace returns the catalog collection holding listings of this category.
func (c ItemCategory) Namespace() string {
	switch c {
	case CategorySell:
		return "items"
	case CategoryRent:
		return "rent-items"
	case CategoryDonate:
		return "donation-items"
	}
	return ""
}

// CodeKind tells how the seller presents the buyer's credential.
type CodeKind string

const (
	CodeKindPIN CodeKind = "pin"
	CodeKindQR  CodeKind = "qr"
)

func ParseCodeKind(s string) (CodeKind, error) {
	switch k := CodeKind(s); k {
	case CodeKindPIN, CodeKindQR:
		return k, nil
	}
	return "", fmt.Errorf("unknown code kind %q", s)
}

type Transaction struct {
	ID           string
	ItemID       string
	Category     ItemCategory
	ItemTitle    string
	Price        decimal.Decimal
	SellerID     string
	BuyerID      string
	BuyerContact string
	Status       Status
	CreatedAt    time.Time
	ApprovedAt   *time.Time
	CompletedAt  *time.Time

	PIN                string
	Token              string
	QRPayload          string
	QRIssuedAt         int64
	CredentialConsumed bool
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// RoleOf returns the role userID plays in the transaction, or false for outsiders.
func (t *Transaction) RoleOf(userID string) (Role, bool) {
	switch userID {
	case t.BuyerID:
		return RoleBuyer, true
	case t.SellerID:
		return RoleSeller, true
	}
	return "", false
}

// UserTransaction is a transaction as seen by one of its participants.
type UserTransaction struct {
	*Transaction
	Role Role
}

// MarshalJSON implements the json.Marshaler interface.
// The token is never exposed and only the buyer gets the PIN and QR payload.
func (d UserTransaction) MarshalJSON() ([]byte, error) {
	o := struct {
		ID                 string          `json:"id"`
		ItemID             string          `json:"itemId"`
		ItemType           ItemCategory    `json:"itemType"`
		ItemTitle          string          `json:"itemTitle"`
		Price              decimal.Decimal `json:"price"`
		SellerID           string          `json:"sellerId"`
		BuyerID            string          `json:"buyerId"`
		BuyerContact       string          `json:"buyerContact,omitempty"`
		Status             Status          `json:"status"`
		CreatedAt          time.Time       `json:"createdAt"`
		ApprovedAt         *time.Time      `json:"approvedAt,omitempty"`
		CompletedAt        *time.Time      `json:"completedAt,omitempty"`
		CredentialConsumed bool            `json:"credentialConsumed"`
		Role               Role            `json:"userRole"`
		PIN                string          `json:"pin,omitempty"`
		QRPayload          string          `json:"qrPayload,omitempty"`
	}{
		ID:                 d.ID,
		ItemID:             d.ItemID,
		ItemType:           d.Category,
		ItemTitle:          d.ItemTitle,
		Price:              d.Price,
		SellerID:           d.SellerID,
		BuyerID:            d.BuyerID,
		BuyerContact:       d.BuyerContact,
		Status:             d.Status,
		CreatedAt:          d.CreatedAt,
		ApprovedAt:         d.ApprovedAt,
		CompletedAt:        d.CompletedAt,
		CredentialConsumed: d.CredentialConsumed,
		Role:               d.Role,
	}

	if d.Role == RoleBuyer && !d.CredentialConsumed {
		o.PIN = d.PIN
		o.QRPayload = d.QRPayload
	}

	return json.Marshal(o)
}
