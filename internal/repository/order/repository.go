package order

import (
	"context"

	"farmstand/internal/domain"
)

type Repository interface {
	// Create inserts one vendor order for a payment reference. If the order for that
	// (reference, vendor) already exists it is returned with created=false.
	Create(ctx context.Context, o domain.Order) (*domain.Order, bool, error)
	ListByPaymentReference(ctx context.Context, reference string) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForBuyer(ctx context.Context, buyerID, id string) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
	// UpdateStatus moves an order only if it is still in status from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
}
