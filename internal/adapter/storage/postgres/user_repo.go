package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
)

const userColumns = `address, owner, savings_rate, total_saved, total_withdrawn, transaction_count,
		is_active, bump, vault_bump, created_at, updated_at`

// UserRepo implements ports.UserLedgerRepository.
type UserRepo struct {
	db DBTX
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user ledger.
func (r *UserRepo) Create(ctx context.Context, u *domain.UserLedger) error {
	n, err := bigints(u.TotalSaved, u.TotalWithdrawn, u.TransactionCount)
	if err != nil {
		return fmt.Errorf("insert user ledger: %w", err)
	}
	query := `INSERT INTO user_ledgers (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		u.Address.String(), u.Owner.String(), int16(u.SavingsRate), n[0], n[1], n[2],
		u.IsActive, int16(u.Bump), int16(u.VaultBump), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user ledger: %w", err)
	}
	return nil
}

// Get fetches a user ledger by address (non-locking read).
func (r *UserRepo) Get(ctx context.Context, address solana.PublicKey) (*domain.UserLedger, error) {
	query := `SELECT ` + userColumns + ` FROM user_ledgers WHERE address = $1`
	return scanUser(r.db.QueryRow(ctx, query, address.String()))
}

// GetForUpdate fetches a user ledger with a row lock held until the tx ends.
func (r *UserRepo) GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.UserLedger, error) {
	query := `SELECT ` + userColumns + ` FROM user_ledgers WHERE address = $1 FOR UPDATE`
	return scanUser(r.db.QueryRow(ctx, query, address.String()))
}

// Update writes every mutable field of a user ledger.
func (r *UserRepo) Update(ctx context.Context, u *domain.UserLedger) error {
	n, err := bigints(u.TotalSaved, u.TotalWithdrawn, u.TransactionCount)
	if err != nil {
		return fmt.Errorf("update user ledger: %w", err)
	}
	query := `UPDATE user_ledgers SET savings_rate = $1, total_saved = $2, total_withdrawn = $3,
		transaction_count = $4, is_active = $5, updated_at = $6 WHERE address = $7`

	tag, err := r.db.Exec(ctx, query,
		int16(u.SavingsRate), n[0], n[1], n[2], u.IsActive, u.UpdatedAt, u.Address.String(),
	)
	if err != nil {
		return fmt.Errorf("update user ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user ledger not found: %s", u.Address)
	}
	return nil
}

// List returns user ledgers in creation order.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]domain.UserLedger, error) {
	query := `SELECT ` + userColumns + ` FROM user_ledgers
		ORDER BY created_at, address LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list user ledgers: %w", err)
	}
	defer rows.Close()

	var users []domain.UserLedger
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ledgers: %w", err)
	}
	return users, nil
}

// Count returns the number of user ledgers and how many are active.
func (r *UserRepo) Count(ctx context.Context) (int64, int64, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM user_ledgers`

	var total, active int64
	if err := r.db.QueryRow(ctx, query).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count user ledgers: %w", err)
	}
	return total, active, nil
}

func scanUser(row pgx.Row) (*domain.UserLedger, error) {
	var (
		u                         domain.UserLedger
		address, owner            string
		rate, bump, vaultBump     int16
		saved, withdrawn, txCount int64
	)
	err := row.Scan(&address, &owner, &rate, &saved, &withdrawn, &txCount,
		&u.IsActive, &bump, &vaultBump, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user ledger: %w", err)
	}
	if u.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if u.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if u.TotalSaved, err = fromBigint(saved); err != nil {
		return nil, err
	}
	if u.TotalWithdrawn, err = fromBigint(withdrawn); err != nil {
		return nil, err
	}
	if u.TransactionCount, err = fromBigint(txCount); err != nil {
		return nil, err
	}
	u.SavingsRate = uint8(rate)
	u.Bump = uint8(bump)
	u.VaultBump = uint8(vaultBump)
	return &u, nil
}
