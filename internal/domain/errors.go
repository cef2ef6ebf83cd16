package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyCart     = errors.New("cart is empty")

	// ErrGatewayUnavailable is retryable; nothing was charged and no order changed.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrPaymentNotConfirmed blocks order creation until a later verify succeeds.
	ErrPaymentNotConfirmed    = errors.New("payment not confirmed")
	ErrPartialMaterialization = errors.New("orders partially materialized")
	ErrCheckoutInProgress     = errors.New("checkout is being finalized")

	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrNotCancellable     = errors.New("order cannot be cancelled")
	ErrCancellationFailed = errors.New("cancellation failed")
	ErrInvalidTicket      = errors.New("cancellation confirmation missing or expired")
)

// PartialMaterializationError means payment was captured but not every vendor order exists.
// It is persisted on the checkout attempt and needs out-of-band reconciliation.
type PartialMaterializationError struct {
	Reference string
	BuyerID   string
	Created   []string
	Pending   []string
	Err       error
}

func (e *PartialMaterializationError) Error() string {
	return fmt.Sprintf("reference %s: %d vendor orders created, pending vendors [%s]: %v",
		e.Reference, len(e.Created), strings.Join(e.Pending, ","), e.Err)
}

func (e *PartialMaterializationError) Unwrap() []error {
	return []error{ErrPartialMaterialization, e.Err}
}
