package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"farmstand/internal/domain"
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

func (r *postgresRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.CartLine, error) {
	const q = `
SELECT id::text, buyer_id::text, product_id::text, quantity, created_at
FROM cart_lines
WHERE buyer_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, buyerID)
	if err != nil {
		r.logger.Printf("cart repo: list buyer_id=%s error=%v", buyerID, err)
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.BuyerID, &line.ProductID, &line.Quantity, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// AddLine inserts a line or bumps the quantity of the existing line for the same product.
func (r *postgresRepo) AddLine(ctx context.Context, buyerID, productID string, quantity int) (*domain.CartLine, error) {
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	const q = `
INSERT INTO cart_lines (buyer_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (buyer_id, product_id) DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
RETURNING id::text, buyer_id::text, product_id::text, quantity, created_at
`
	var line domain.CartLine
	if err := r.pool.QueryRow(ctx, q, buyerID, productID, quantity).Scan(
		&line.ID,
		&line.BuyerID,
		&line.ProductID,
		&line.Quantity,
		&line.CreatedAt,
	); err != nil {
		r.logger.Printf("cart repo: add buyer_id=%s product_id=%s error=%v", buyerID, productID, err)
		return nil, err
	}
	return &line, nil
}

func (r *postgresRepo) UpdateQuantity(ctx context.Context, buyerID, lineID string, quantity int) error {
	if quantity <= 0 {
		return r.DeleteLine(ctx, buyerID, lineID)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1
WHERE id = $2 AND buyer_id = $3
`, quantity, lineID, buyerID)
	if err != nil {
		r.logger.Printf("cart repo: update buyer_id=%s line_id=%s error=%v", buyerID, lineID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteLine(ctx context.Context, buyerID, lineID string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines
WHERE id = $1 AND buyer_id = $2
`, lineID, buyerID)
	if err != nil {
		r.logger.Printf("cart repo: delete buyer_id=%s line_id=%s error=%v", buyerID, lineID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ClearByBuyer(ctx context.Context, buyerID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE buyer_id = $1`, buyerID)
	if err != nil {
		r.logger.Printf("cart repo: clear buyer_id=%s error=%v", buyerID, err)
		return err
	}
	r.logger.Printf("cart repo: cleared buyer_id=%s lines=%d", buyerID, cmd.RowsAffected())
	return nil
}
