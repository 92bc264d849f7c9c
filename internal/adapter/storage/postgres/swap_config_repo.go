package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
)

// SwapConfigRepo implements ports.SwapConfigRepository.
type SwapConfigRepo struct {
	db DBTX
}

// NewSwapConfigRepo creates a new SwapConfigRepo.
func NewSwapConfigRepo(db DBTX) *SwapConfigRepo {
	return &SwapConfigRepo{db: db}
}

// Get fetches a swap config by address.
func (r *SwapConfigRepo) Get(ctx context.Context, address solana.PublicKey) (*domain.SwapConfig, error) {
	query := `SELECT address, owner, target_mint, min_amount, enabled, bump, updated_at
		FROM swap_configs WHERE address = $1`

	var (
		c                   domain.SwapConfig
		addr, owner, target string
		minAmount           int64
		bump                int16
	)
	err := r.db.QueryRow(ctx, query, address.String()).Scan(
		&addr, &owner, &target, &minAmount, &c.Enabled, &bump, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap config: %w", err)
	}
	if c.Address, err = parseKey(addr); err != nil {
		return nil, err
	}
	if c.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if c.TargetMint, err = parseKey(target); err != nil {
		return nil, err
	}
	if c.MinAmount, err = fromBigint(minAmount); err != nil {
		return nil, err
	}
	c.Bump = uint8(bump)
	return &c, nil
}

// Upsert creates or replaces a swap config.
func (r *SwapConfigRepo) Upsert(ctx context.Context, c *domain.SwapConfig) error {
	minAmount, err := toBigint(c.MinAmount)
	if err != nil {
		return fmt.Errorf("upsert swap config: %w", err)
	}
	query := `INSERT INTO swap_configs (address, owner, target_mint, min_amount, enabled, bump, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET target_mint = EXCLUDED.target_mint,
			min_amount = EXCLUDED.min_amount, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query,
		c.Address.String(), c.Owner.String(), c.TargetMint.String(), minAmount,
		c.Enabled, int16(c.Bump), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert swap config: %w", err)
	}
	return nil
}
