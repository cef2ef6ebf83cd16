package buyer

import (
	"context"

	"farmstand/internal/domain"
)

// Repository persists buyers and reads their refund wallet.
type Repository interface {
	Upsert(ctx context.Context, email, displayName string) (*domain.Buyer, error)
	GetByID(ctx context.Context, id string) (*domain.Buyer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Buyer, error)
	EnsureWallet(ctx context.Context, buyerID string) error
	WalletBalance(ctx context.Context, buyerID string) (int64, error)
}
