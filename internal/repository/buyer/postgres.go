package buyer

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"farmstand/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Upsert(ctx context.Context, email, displayName string) (*domain.Buyer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email required")
	}
	const q = `
INSERT INTO buyers (email, display_name)
VALUES ($1, $2)
ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
RETURNING id::text, email, display_name, created_at
`
	return r.scanBuyer(r.pool.QueryRow(ctx, q, email, displayName))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Buyer, error) {
	const q = `
SELECT id::text, email, display_name, created_at
FROM buyers
WHERE id = $1
`
	return r.scanBuyer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Buyer, error) {
	const q = `
SELECT id::text, email, display_name, created_at
FROM buyers
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanBuyer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) EnsureWallet(ctx context.Context, buyerID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO wallets (buyer_id) VALUES ($1) ON CONFLICT (buyer_id) DO NOTHING`, buyerID)
	if err != nil {
		r.logger.Printf("buyer repo: ensure wallet buyer_id=%s error=%v", buyerID, err)
	}
	return err
}

func (r *postgresRepo) WalletBalance(ctx context.Context, buyerID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance_minor FROM wallets WHERE buyer_id = $1`, buyerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Printf("buyer repo: wallet balance buyer_id=%s error=%v", buyerID, err)
		return 0, err
	}
	return balance, nil
}

func (r *postgresRepo) scanBuyer(row pgx.Row) (*domain.Buyer, error) {
	var b domain.Buyer
	if err := row.Scan(&b.ID, &b.Email, &b.DisplayName, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("buyer repo: scan error=%v", err)
		return nil, err
	}
	return &b, nil
}
