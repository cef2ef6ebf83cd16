package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"farmstand/internal/domain"
	"farmstand/internal/repository/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const attemptColumns = `
reference, buyer_id::text, email, channel, amount_minor, currency, quote, status,
authorization_url, amount_paid_minor, failure_detail, verified_at, created_at, updated_at
`

func (r *postgresRepo) Create(ctx context.Context, a domain.CheckoutAttempt) (*domain.CheckoutAttempt, error) {
	quoteJSON, err := json.Marshal(a.Quote)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO checkout_attempts (reference, buyer_id, email, channel, amount_minor, currency, quote, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'initialized')
RETURNING` + attemptColumns
	created, err := r.scanAttempt(r.pool.QueryRow(ctx, q, a.Reference, a.BuyerID, a.Email, a.Channel, a.AmountMinor, a.Currency, quoteJSON))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("attempt repo: created reference=%s buyer_id=%s amount=%d", created.Reference, created.BuyerID, created.AmountMinor)
	return created, nil
}

func (r *postgresRepo) Get(ctx context.Context, reference string) (*domain.CheckoutAttempt, error) {
	q := `SELECT` + attemptColumns + `FROM checkout_attempts WHERE reference = $1`
	return r.scanAttempt(r.pool.QueryRow(ctx, q, reference))
}

func (r *postgresRepo) SetAuthorizationURL(ctx context.Context, reference, url string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE checkout_attempts
SET authorization_url = $2, updated_at = now()
WHERE reference = $1
`, reference, url)
	if err != nil {
		r.logger.Printf("attempt repo: set authorization reference=%s error=%v", reference, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkVerified(ctx context.Context, reference string, amountPaid int64) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE checkout_attempts
SET verified_at = now(),
    amount_paid_minor = $2,
    status = CASE WHEN status = 'initialized' THEN 'verified' ELSE status END,
    updated_at = now()
WHERE reference = $1 AND verified_at IS NULL
`, reference, amountPaid)
	if err != nil {
		r.logger.Printf("attempt repo: mark verified reference=%s error=%v", reference, err)
		return false, err
	}
	if cmd.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.Get(ctx, reference); err != nil {
		return false, err
	}
	return false, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, reference string, status domain.AttemptStatus) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE checkout_attempts
SET status = $2,
    failure_detail = CASE WHEN $2 = 'materialized' THEN '' ELSE failure_detail END,
    updated_at = now()
WHERE reference = $1
`, reference, string(status))
	if err != nil {
		r.logger.Printf("attempt repo: update status reference=%s status=%s error=%v", reference, status, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) FlagReconciliation(ctx context.Context, reference, detail string, pendingVendors []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var buyerID string
	err = tx.QueryRow(ctx, `
UPDATE checkout_attempts
SET status = 'reconciliation_needed', failure_detail = $2, updated_at = now()
WHERE reference = $1
RETURNING buyer_id::text
`, reference, detail).Scan(&buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	payload := map[string]any{
		"reference":      reference,
		"buyerId":        buyerID,
		"detail":         detail,
		"pendingVendors": pendingVendors,
	}
	if err := outbox.Write(ctx, tx, outbox.AggregateCheckoutAttempt, reference, outbox.EventReconciliationNeeded, payload); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Printf("attempt repo: flagged reconciliation reference=%s buyer_id=%s pending=%d", reference, buyerID, len(pendingVendors))
	return nil
}

func (r *postgresRepo) ListByStatus(ctx context.Context, status domain.AttemptStatus, limit int) ([]domain.CheckoutAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT` + attemptColumns + `
FROM checkout_attempts
WHERE status = $1
ORDER BY updated_at ASC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, string(status), limit)
	if err != nil {
		r.logger.Printf("attempt repo: list status=%s error=%v", status, err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.CheckoutAttempt
	for rows.Next() {
		a, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) scanAttempt(row pgx.Row) (*domain.CheckoutAttempt, error) {
	var a domain.CheckoutAttempt
	var quoteJSON []byte
	err := row.Scan(
		&a.Reference,
		&a.BuyerID,
		&a.Email,
		&a.Channel,
		&a.AmountMinor,
		&a.Currency,
		&quoteJSON,
		&a.Status,
		&a.AuthorizationURL,
		&a.AmountPaidMinor,
		&a.FailureDetail,
		&a.VerifiedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("attempt repo: scan error=%v", err)
		return nil, err
	}
	if len(quoteJSON) > 0 {
		if err := json.Unmarshal(quoteJSON, &a.Quote); err != nil {
			r.logger.Printf("attempt repo: decode quote reference=%s err=%v", a.Reference, err)
			return nil, err
		}
	}
	return &a, nil
}
