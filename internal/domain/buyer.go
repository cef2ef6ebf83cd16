package domain

import "time"

// Buyer is the account placing orders.
type Buyer struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Session is the read-only identity passed explicitly into checkout operations.
type Session struct {
	BuyerID     string
	Email       string
	DisplayName string
}
