package domain

import "time"

type AttemptStatus string

const (
	AttemptInitialized          AttemptStatus = "initialized"
	AttemptVerified             AttemptStatus = "verified"
	AttemptMaterializing        AttemptStatus = "materializing"
	AttemptMaterialized         AttemptStatus = "materialized"
	AttemptReconciliationNeeded AttemptStatus = "reconciliation_needed"
)

func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptInitialized, AttemptVerified, AttemptMaterializing, AttemptMaterialized, AttemptReconciliationNeeded:
		return true
	}
	return false
}

// CheckoutAttempt is the durable record of one checkout keyed by its payment reference.
// It is written before the gateway is asked to verify so a crash mid fan-out can resume.
type CheckoutAttempt struct {
	Reference        string         `json:"reference"`
	BuyerID          string         `json:"buyerId"`
	Email            string         `json:"email"`
	Channel          PaymentChannel `json:"channel"`
	AmountMinor      int64          `json:"amountMinor"`
	Currency         string         `json:"currency"`
	Quote            CheckoutQuote  `json:"quote"`
	Status           AttemptStatus  `json:"status"`
	AuthorizationURL string         `json:"authorizationUrl,omitempty"`
	AmountPaidMinor  int64          `json:"amountPaidMinor"`
	FailureDetail    string         `json:"failureDetail,omitempty"`
	VerifiedAt       *time.Time     `json:"verifiedAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// IsVerified reports whether payment has already been confirmed for the attempt.
func (a CheckoutAttempt) IsVerified() bool {
	return a.VerifiedAt != nil
}
