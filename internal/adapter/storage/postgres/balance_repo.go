package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository. Missing rows read as zero.
type BalanceRepo struct {
	db DBTX
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(db DBTX) *BalanceRepo {
	return &BalanceRepo{db: db}
}

// Get reads a balance without locking.
func (r *BalanceRepo) Get(ctx context.Context, key domain.BalanceKey) (uint64, error) {
	query := `SELECT amount FROM balances WHERE address = $1 AND mint = $2`
	return scanBalance(r.db.QueryRow(ctx, query, key.Address.String(), key.Mint.String()))
}

// GetForUpdate reads a balance and locks its row. A missing row is not locked;
// callers serialize on the owning ledger record first.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, key domain.BalanceKey) (uint64, error) {
	query := `SELECT amount FROM balances WHERE address = $1 AND mint = $2 FOR UPDATE`
	return scanBalance(r.db.QueryRow(ctx, query, key.Address.String(), key.Mint.String()))
}

// Set writes the absolute balance, creating the row when needed.
func (r *BalanceRepo) Set(ctx context.Context, key domain.BalanceKey, amount uint64) error {
	n, err := toBigint(amount)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	query := `INSERT INTO balances (address, mint, amount, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (address, mint) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, key.Address.String(), key.Mint.String(), n); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func scanBalance(row pgx.Row) (uint64, error) {
	var amount int64
	if err := row.Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return fromBigint(amount)
}
