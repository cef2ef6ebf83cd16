package product

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"farmstand/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const catalogColumns = `
p.id::text, p.sku, p.name, p.unit, p.price_minor, p.currency, v.id::text, v.display_name, p.created_at
`

func scanEntry(row pgx.Row) (*domain.CatalogEntry, error) {
	var e domain.CatalogEntry
	if err := row.Scan(&e.ProductID, &e.SKU, &e.Name, &e.Unit, &e.PriceMinor, &e.Currency, &e.VendorID, &e.VendorName, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *postgresRepo) GetCatalogEntry(ctx context.Context, productID string) (*domain.CatalogEntry, error) {
	q := `SELECT` + catalogColumns + `
FROM products p
JOIN vendors v ON v.id = p.vendor_id
WHERE p.id = $1
`
	e, err := scanEntry(r.pool.QueryRow(ctx, q, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("catalog repo: get product_id=%s not found", productID)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: get product_id=%s error=%v", productID, err)
		return nil, err
	}
	return e, nil
}

func (r *postgresRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.CatalogEntry, error) {
	q := `SELECT` + catalogColumns + `
FROM products p
JOIN vendors v ON v.id = p.vendor_id
WHERE p.vendor_id = $1
ORDER BY p.name ASC
`
	rows, err := r.pool.Query(ctx, q, vendorID)
	if err != nil {
		r.logger.Printf("catalog repo: list vendor_id=%s error=%v", vendorID, err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Printf("catalog repo: list vendor_id=%s count=%d", vendorID, len(result))
	return result, nil
}

func (r *postgresRepo) UpsertVendor(ctx context.Context, displayName string) (*domain.Vendor, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, errors.New("vendor display name required")
	}
	const q = `
INSERT INTO vendors (display_name)
VALUES ($1)
ON CONFLICT (display_name) DO UPDATE SET display_name = EXCLUDED.display_name
RETURNING id::text, display_name, created_at
`
	var v domain.Vendor
	if err := r.pool.QueryRow(ctx, q, name).Scan(&v.ID, &v.DisplayName, &v.CreatedAt); err != nil {
		r.logger.Printf("catalog repo: upsert vendor name=%s error=%v", name, err)
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) (*domain.CatalogEntry, error) {
	unit := in.Unit
	if unit == "" {
		unit = "unit"
	}
	const q = `
WITH up AS (
    INSERT INTO products (vendor_id, sku, name, unit, price_minor, currency)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (vendor_id, sku) DO UPDATE SET
        name = EXCLUDED.name,
        unit = EXCLUDED.unit,
        price_minor = EXCLUDED.price_minor,
        currency = EXCLUDED.currency
    RETURNING *
)
SELECT up.id::text, up.sku, up.name, up.unit, up.price_minor, up.currency, v.id::text, v.display_name, up.created_at
FROM up
JOIN vendors v ON v.id = up.vendor_id
`
	e, err := scanEntry(r.pool.QueryRow(ctx, q, in.VendorID, in.SKU, in.Name, unit, in.PriceMinor, in.Currency))
	if err != nil {
		r.logger.Printf("catalog repo: upsert sku=%s vendor_id=%s error=%v", in.SKU, in.VendorID, err)
		return nil, err
	}
	r.logger.Printf("catalog repo: upserted sku=%s vendor_id=%s id=%s", e.SKU, e.VendorID, e.ProductID)
	return e, nil
}
