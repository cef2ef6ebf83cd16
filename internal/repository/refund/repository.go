package refund

import (
	"context"

	"farmstand/internal/domain"
)

type CancelInput struct {
	OrderID string
	BuyerID string
	Reason  domain.CancellationReason
	Method  domain.RefundMethod
}

// CancelResult is what cancel_order reports back after committing.
type CancelResult struct {
	Refund        domain.RefundRecord
	Processed     bool
	PaymentStatus domain.PaymentStatus
}

type Repository interface {
	// Cancel runs the cancel_order procedure. Either everything it touches changes or nothing does.
	Cancel(ctx context.Context, in CancelInput) (*CancelResult, error)
	GetByOrder(ctx context.Context, orderID string) (*domain.RefundRecord, error)
}
