package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
)

// AllocationRepo implements ports.AllocationRepository. The ordered allocation
// list is stored as one JSONB array so indexes stay stable.
type AllocationRepo struct {
	db DBTX
}

// NewAllocationRepo creates a new AllocationRepo.
func NewAllocationRepo(db DBTX) *AllocationRepo {
	return &AllocationRepo{db: db}
}

// Create inserts a new allocation ledger.
func (r *AllocationRepo) Create(ctx context.Context, l *domain.AllocationLedger) error {
	doc, err := encodeAllocations(l.Allocations)
	if err != nil {
		return err
	}
	query := `INSERT INTO allocation_ledgers (address, owner, bump, allocations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		l.Address.String(), l.Owner.String(), int16(l.Bump), doc, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert allocation ledger: %w", err)
	}
	return nil
}

// Get fetches an allocation ledger (non-locking read).
func (r *AllocationRepo) Get(ctx context.Context, address solana.PublicKey) (*domain.AllocationLedger, error) {
	query := `SELECT address, owner, bump, allocations, created_at, updated_at
		FROM allocation_ledgers WHERE address = $1`
	return scanAllocationLedger(r.db.QueryRow(ctx, query, address.String()))
}

// GetForUpdate fetches an allocation ledger with a row lock.
func (r *AllocationRepo) GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.AllocationLedger, error) {
	query := `SELECT address, owner, bump, allocations, created_at, updated_at
		FROM allocation_ledgers WHERE address = $1 FOR UPDATE`
	return scanAllocationLedger(r.db.QueryRow(ctx, query, address.String()))
}

// Update replaces the allocation list.
func (r *AllocationRepo) Update(ctx context.Context, l *domain.AllocationLedger) error {
	doc, err := encodeAllocations(l.Allocations)
	if err != nil {
		return err
	}
	query := `UPDATE allocation_ledgers SET allocations = $1, updated_at = $2 WHERE address = $3`

	tag, err := r.db.Exec(ctx, query, doc, l.UpdatedAt, l.Address.String())
	if err != nil {
		return fmt.Errorf("update allocation ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allocation ledger not found: %s", l.Address)
	}
	return nil
}

func encodeAllocations(allocs []domain.Allocation) ([]byte, error) {
	if allocs == nil {
		allocs = []domain.Allocation{}
	}
	doc, err := json.Marshal(allocs)
	if err != nil {
		return nil, fmt.Errorf("encode allocations: %w", err)
	}
	return doc, nil
}

func scanAllocationLedger(row pgx.Row) (*domain.AllocationLedger, error) {
	var (
		l              domain.AllocationLedger
		address, owner string
		bump           int16
		doc            []byte
	)
	err := row.Scan(&address, &owner, &bump, &doc, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan allocation ledger: %w", err)
	}
	if l.Address, err = parseKey(address); err != nil {
		return nil, err
	}
	if l.Owner, err = parseKey(owner); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &l.Allocations); err != nil {
		return nil, fmt.Errorf("decode allocations: %w", err)
	}
	l.Bump = uint8(bump)
	return &l, nil
}
