package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
)

const treasuryColumns = `address, authority, total_fees_collected, bump, vault_bump, is_paused,
		total_tvl, tvl_cap, created_at, updated_at`

// TreasuryRepo implements ports.TreasuryRepository.
type TreasuryRepo struct {
	db DBTX
}

// NewTreasuryRepo creates a new TreasuryRepo.
func NewTreasuryRepo(db DBTX) *TreasuryRepo {
	return &TreasuryRepo{db: db}
}

// Create inserts the treasury ledger.
func (r *TreasuryRepo) Create(ctx context.Context, t *domain.TreasuryLedger) error {
	n, err := bigints(t.TotalFeesCollected, t.TotalTVL, t.TVLCap)
	if err != nil {
		return fmt.Errorf("insert treasury: %w", err)
	}
	query := `INSERT INTO treasury_ledgers (` + treasuryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		t.Address.String(), t.Authority.String(), n[0], int16(t.Bump), int16(t.VaultBump),
		t.IsPaused, n[1], n[2], t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert treasury: %w", err)
	}
	return nil
}

// Get fetches the treasury ledger (non-locking read).
func (r *TreasuryRepo) Get(ctx context.Context, address solana.PublicKey) (*domain.TreasuryLedger, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury_ledgers WHERE address = $1`
	return scanTreasury(r.db.QueryRow(ctx, query, address.String()))
}

// GetForUpdate fetches the treasury ledger with a row lock.
func (r *TreasuryRepo) GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.TreasuryLedger, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury_ledgers WHERE address = $1 FOR UPDATE`
	return scanTreasury(r.db.QueryRow(ctx, query, address.String()))
}

// Update writes the mutable treasury fields.
func (r *TreasuryRepo) Update(ctx context.Context, t *domain.TreasuryLedger) error {
	n, err := bigints(t.TotalFeesCollected, t.TotalTVL, t.TVLCap)
	if err != nil {
		return fmt.Errorf("update treasury: %w", err)
	}
	query := `UPDATE treasury_ledgers SET total_fees_collected = $1, is_paused = $2, total_tvl = $3,
		tvl_cap = $4, updated_at = $5 WHERE address = $6`

	tag, err := r.db.Exec(ctx, query, n[0], t.IsPaused, n[1], n[2], t.UpdatedAt, t.Address.String())
	if err != nil {
		return fmt.Errorf("update treasury: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("treasury not found: %s", t.Address)
	}
	return nil
}

func scanTreasury(row pgx.Row) (*domain.TreasuryLedger, error) {
	var (
		t                  domain.TreasuryLedger
		address, authority string
		bump, vaultBump    int16
		fees, tvl, tvlCap  int64
	)
	err := row.Scan(&address, &authority, &fees, &bump, &vaultBump, &t.IsPaused,
		&tvl, &tvlCap, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan treasury: %w", err)
	}
	if t.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if t.Authority, err = parseKey(authority); err != nil {
		return nil, err
	}
	if t.TotalFeesCollected, err = fromBigint(fees); err != nil {
		return nil, err
	}
	if t.TotalTVL, err = fromBigint(tvl); err != nil {
		return nil, err
	}
	if t.TVLCap, err = fromBigint(tvlCap); err != nil {
		return nil, err
	}
	t.Bump = uint8(bump)
	t.VaultBump = uint8(vaultBump)
	return &t, nil
}
