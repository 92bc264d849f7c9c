package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
)

const tokenVaultColumns = `address, owner, mint, bump, total_deposited, total_withdrawn, created_at, updated_at`

// TokenVaultRepo implements ports.TokenVaultRepository.
type TokenVaultRepo struct {
	db DBTX
}

// NewTokenVaultRepo creates a new TokenVaultRepo.
func NewTokenVaultRepo(db DBTX) *TokenVaultRepo {
	return &TokenVaultRepo{db: db}
}

// Create inserts a token vault record.
func (r *TokenVaultRepo) Create(ctx context.Context, v *domain.TokenVault) error {
	n, err := bigints(v.TotalDeposited, v.TotalWithdrawn)
	if err != nil {
		return fmt.Errorf("insert token vault: %w", err)
	}
	query := `INSERT INTO token_vaults (` + tokenVaultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.Exec(ctx, query,
		v.Address.String(), v.Owner.String(), v.Mint.String(), int16(v.Bump),
		n[0], n[1], v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token vault: %w", err)
	}
	return nil
}

// Get fetches a token vault record (non-locking read).
func (r *TokenVaultRepo) Get(ctx context.Context, address solana.PublicKey) (*domain.TokenVault, error) {
	query := `SELECT ` + tokenVaultColumns + ` FROM token_vaults WHERE address = $1`
	return scanTokenVault(r.db.QueryRow(ctx, query, address.String()))
}

// GetForUpdate fetches a token vault record with a row lock.
func (r *TokenVaultRepo) GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.TokenVault, error) {
	query := `SELECT ` + tokenVaultColumns + ` FROM token_vaults WHERE address = $1 FOR UPDATE`
	return scanTokenVault(r.db.QueryRow(ctx, query, address.String()))
}

// Update writes the vault totals.
func (r *TokenVaultRepo) Update(ctx context.Context, v *domain.TokenVault) error {
	n, err := bigints(v.TotalDeposited, v.TotalWithdrawn)
	if err != nil {
		return fmt.Errorf("update token vault: %w", err)
	}
	query := `UPDATE token_vaults SET total_deposited = $1, total_withdrawn = $2, updated_at = $3
		WHERE address = $4`

	tag, err := r.db.Exec(ctx, query, n[0], n[1], v.UpdatedAt, v.Address.String())
	if err != nil {
		return fmt.Errorf("update token vault: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token vault not found: %s", v.Address)
	}
	return nil
}

func scanTokenVault(row pgx.Row) (*domain.TokenVault, error) {
	var (
		v                    domain.TokenVault
		address, owner, mint string
		bump                 int16
		deposited, withdrawn int64
	)
	err := row.Scan(&address, &owner, &mint, &bump, &deposited, &withdrawn, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan token vault: %w", err)
	}
	if v.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if v.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if v.Mint, err = parseKey(mint); err != nil {
		return nil, err
	}
	if v.TotalDeposited, err = fromBigint(deposited); err != nil {
		return nil, err
	}
	if v.TotalWithdrawn, err = fromBigint(withdrawn); err != nil {
		return nil, err
	}
	v.Bump = uint8(bump)
	return &v, nil
}
