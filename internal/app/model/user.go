package model

// Caller is the authenticated identity supplied by the identity provider.
type Caller struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type RewardBalance struct {
	UserID string `json:"userId"`
	Points int64  `json:"points"`
}
