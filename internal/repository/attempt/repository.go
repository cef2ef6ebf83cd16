package attempt

import (
	"context"

	"farmstand/internal/domain"
)

type Repository interface {
	// Create stores a new attempt in status initialized. A reference that already
	// exists returns domain.ErrAlreadyExists.
	Create(ctx context.Context, a domain.CheckoutAttempt) (*domain.CheckoutAttempt, error)
	Get(ctx context.Context, reference string) (*domain.CheckoutAttempt, error)
	SetAuthorizationURL(ctx context.Context, reference, url string) error
	// MarkVerified records the first successful verification. first is false when
	// the attempt was already verified.
	MarkVerified(ctx context.Context, reference string, amountPaid int64) (first bool, err error)
	UpdateStatus(ctx context.Context, reference string, status domain.AttemptStatus) error
	// FlagReconciliation moves the attempt to reconciliation_needed and queues an
	// outbox event in the same transaction.
	FlagReconciliation(ctx context.Context, reference, detail string, pendingVendors []string) error
	ListByStatus(ctx context.Context, status domain.AttemptStatus, limit int) ([]domain.CheckoutAttempt, error)
}
