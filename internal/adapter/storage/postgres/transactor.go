package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.Transactor using a pgx pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new database transaction and exposes the ledger repositories over it.
func (t *Transactor) Begin(ctx context.Context) (ports.LedgerTx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	return &ledgerTx{tx: tx}, nil
}

// ledgerTx binds every repository to one pgx.Tx.
type ledgerTx struct {
	tx pgx.Tx
}

func (l *ledgerTx) Users() ports.UserLedgerRepository        { return NewUserRepo(l.tx) }
func (l *ledgerTx) Treasury() ports.TreasuryRepository       { return NewTreasuryRepo(l.tx) }
func (l *ledgerTx) Allocations() ports.AllocationRepository  { return NewAllocationRepo(l.tx) }
func (l *ledgerTx) TokenVaults() ports.TokenVaultRepository  { return NewTokenVaultRepo(l.tx) }
func (l *ledgerTx) SwapConfigs() ports.SwapConfigRepository  { return NewSwapConfigRepo(l.tx) }
func (l *ledgerTx) Balances() ports.BalanceRepository        { return NewBalanceRepo(l.tx) }
func (l *ledgerTx) Journal() ports.JournalRepository         { return NewJournalRepo(l.tx) }
func (l *ledgerTx) Idempotency() ports.IdempotencyRepository { return NewIdempotencyRepo(l.tx) }

func (l *ledgerTx) Commit(ctx context.Context) error {
	if err := l.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// Rollback is a no-op once the transaction has been committed.
func (l *ledgerTx) Rollback(ctx context.Context) error {
	err := l.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return fmt.Errorf("rollback ledger tx: %w", err)
}
