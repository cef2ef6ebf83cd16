package product

import (
	"context"

	"farmstand/internal/domain"
)

// UpsertInput identifies a product by vendor and SKU so catalog imports are repeatable.
type UpsertInput struct {
	VendorID   string
	SKU        string
	Name       string
	Unit       string
	PriceMinor int64
	Currency   string
}

type Repository interface {
	GetCatalogEntry(ctx context.Context, productID string) (*domain.CatalogEntry, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.CatalogEntry, error)
	UpsertVendor(ctx context.Context, displayName string) (*domain.Vendor, error)
	Upsert(ctx context.Context, in UpsertInput) (*domain.CatalogEntry, error)
}
