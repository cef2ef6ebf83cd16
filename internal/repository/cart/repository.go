package cart

import (
	"context"

	"farmstand/internal/domain"
)

// Repository is scoped by buyer on every call so one buyer can never touch another's lines.
type Repository interface {
	ListByBuyer(ctx context.Context, buyerID string) ([]domain.CartLine, error)
	AddLine(ctx context.Context, buyerID, productID string, quantity int) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, buyerID, lineID string, quantity int) error
	DeleteLine(ctx context.Context, buyerID, lineID string) error
	ClearByBuyer(ctx context.Context, buyerID string) error
}
