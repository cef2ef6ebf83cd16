package refund

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"farmstand/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATEs raised by cancel_order.
const (
	codeOrderNotFound    = "MK404"
	codeOrderNotEligible = "MK409"
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

func (r *postgresRepo) Cancel(ctx context.Context, in CancelInput) (*CancelResult, error) {
	const q = `
SELECT refund_id::text, refund_processed, refund_amount_minor, refund_status, order_payment_status, refund_created_at
FROM cancel_order($1, $2, $3, $4)
`
	res := CancelResult{Refund: domain.RefundRecord{
		OrderID: in.OrderID,
		BuyerID: in.BuyerID,
		Reason:  in.Reason,
		Method:  in.Method,
	}}
	err := r.pool.QueryRow(ctx, q, in.OrderID, in.BuyerID, string(in.Reason), string(in.Method)).Scan(
		&res.Refund.ID,
		&res.Processed,
		&res.Refund.AmountMinor,
		&res.Refund.Status,
		&res.PaymentStatus,
		&res.Refund.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case codeOrderNotFound:
				return nil, domain.ErrNotFound
			case codeOrderNotEligible:
				return nil, fmt.Errorf("%w: %s", domain.ErrNotCancellable, pgErr.Message)
			}
		}
		r.logger.Printf("refund repo: cancel order_id=%s buyer_id=%s method=%s error=%v", in.OrderID, in.BuyerID, in.Method, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrCancellationFailed, err)
	}
	r.logger.Printf("refund repo: cancelled order_id=%s refund_id=%s amount=%d status=%s", in.OrderID, res.Refund.ID, res.Refund.AmountMinor, res.Refund.Status)
	return &res, nil
}

func (r *postgresRepo) GetByOrder(ctx context.Context, orderID string) (*domain.RefundRecord, error) {
	const q = `
SELECT id::text, order_id::text, buyer_id::text, reason, amount_minor, method, status, created_at
FROM refunds
WHERE order_id = $1
`
	var rec domain.RefundRecord
	err := r.pool.QueryRow(ctx, q, orderID).Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.BuyerID,
		&rec.Reason,
		&rec.AmountMinor,
		&rec.Method,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
