package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"farmstand/internal/domain"
	"farmstand/internal/repository/outbox"
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

const orderColumns = `
id::text, buyer_id::text, vendor_id::text, vendor_name, line_items, total_minor,
delivery_fee_minor, service_fee_minor, discount_minor, currency, payment_reference,
payment_method, payment_status, status, cancel_reason, created_at, updated_at
`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, bool, error) {
	itemsJSON, err := json.Marshal(o.LineItems)
	if err != nil {
		return nil, false, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	q := `
INSERT INTO orders (
    buyer_id, vendor_id, vendor_name, line_items, total_minor, delivery_fee_minor,
    service_fee_minor, discount_minor, currency, payment_reference, payment_method,
    payment_status, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (payment_reference, vendor_id) DO NOTHING
RETURNING` + orderColumns
	created, err := r.scanOrder(tx.QueryRow(ctx, q,
		o.BuyerID,
		o.VendorID,
		o.VendorName,
		itemsJSON,
		o.TotalMinor,
		o.DeliveryFeeShare,
		o.ServiceFeeShare,
		o.DiscountShare,
		o.Currency,
		o.PaymentReference,
		string(o.PaymentMethod),
		string(o.PaymentStatus),
		string(o.Status),
	))
	if errors.Is(err, domain.ErrNotFound) {
		existing, err := r.scanOrder(tx.QueryRow(ctx, `SELECT`+orderColumns+`FROM orders WHERE payment_reference = $1 AND vendor_id = $2`, o.PaymentReference, o.VendorID))
		if err != nil {
			return nil, false, err
		}
		r.logger.Printf("order repo: exists reference=%s vendor_id=%s id=%s", o.PaymentReference, o.VendorID, existing.ID)
		return existing, false, nil
	}
	if err != nil {
		r.logger.Printf("order repo: create reference=%s vendor_id=%s error=%v", o.PaymentReference, o.VendorID, err)
		return nil, false, err
	}

	payload := map[string]any{
		"orderId":          created.ID,
		"buyerId":          created.BuyerID,
		"vendorId":         created.VendorID,
		"paymentReference": created.PaymentReference,
		"totalMinor":       created.TotalMinor,
		"amountPaidMinor":  created.AmountPaid(),
		"currency":         created.Currency,
		"items":            len(created.LineItems),
	}
	if err := outbox.Write(ctx, tx, outbox.AggregateOrder, created.ID, outbox.EventOrderCreated, payload); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	r.logger.Printf("order repo: created id=%s reference=%s vendor_id=%s total=%d", created.ID, created.PaymentReference, created.VendorID, created.TotalMinor)
	return created, true, nil
}

func (r *postgresRepo) ListByPaymentReference(ctx context.Context, reference string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT`+orderColumns+`FROM orders WHERE payment_reference = $1 ORDER BY created_at ASC, id ASC`, reference)
}

func (r *postgresRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT`+orderColumns+`FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC, id ASC`, buyerID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx, `SELECT`+orderColumns+`FROM orders WHERE id = $1`, id))
}

func (r *postgresRepo) GetForBuyer(ctx context.Context, buyerID, id string) (*domain.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx, `SELECT`+orderColumns+`FROM orders WHERE id = $1 AND buyer_id = $2`, id, buyerID))
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q := `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
RETURNING` + orderColumns
	updated, err := r.scanOrder(tx.QueryRow(ctx, q, id, string(from), string(to)))
	if errors.Is(err, domain.ErrNotFound) {
		// either the order is gone or someone else moved it first
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: order %s is %s, expected %s", domain.ErrInvalidTransition, id, current.Status, from)
	}
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"orderId":  updated.ID,
		"vendorId": updated.VendorID,
		"from":     from,
		"to":       to,
	}
	if err := outbox.Write(ctx, tx, outbox.AggregateOrder, updated.ID, outbox.EventOrderStatusChanged, payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: status id=%s from=%s to=%s", id, from, to)
	return updated, nil
}

func (r *postgresRepo) list(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var itemsJSON []byte
	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.VendorID,
		&o.VendorName,
		&itemsJSON,
		&o.TotalMinor,
		&o.DeliveryFeeShare,
		&o.ServiceFeeShare,
		&o.DiscountShare,
		&o.Currency,
		&o.PaymentReference,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Status,
		&o.CancelReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: scan error=%v", err)
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.LineItems); err != nil {
			r.logger.Printf("order repo: decode line items id=%s err=%v", o.ID, err)
			return nil, err
		}
	}
	return &o, nil
}
