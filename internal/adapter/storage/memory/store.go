// Package memory is a process-local ledger store. A unit of work holds the
// single writer slot from Begin until Commit or Rollback and stages every write
// in an overlay, so a failed operation leaves no trace.
package memory

import (
	"context"
	"errors"
	"sync"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/gagliardetto/solana-go"
)

// ErrTxDone is returned when a finished unit of work is used again.
var ErrTxDone = errors.New("memory: transaction already committed or rolled back")

// ErrDuplicate is returned when Create targets an existing record.
var ErrDuplicate = errors.New("memory: record already exists")

// ErrNotFound is returned when Update targets a missing record.
var ErrNotFound = errors.New("memory: record not found")

// Store holds committed ledger state.
type Store struct {
	slot chan struct{}

	users       map[solana.PublicKey]domain.UserLedger
	treasuries  map[solana.PublicKey]domain.TreasuryLedger
	allocations map[solana.PublicKey]*domain.AllocationLedger
	tokenVaults map[solana.PublicKey]domain.TokenVault
	swaps       map[solana.PublicKey]domain.SwapConfig
	balances    map[domain.BalanceKey]uint64
	journal     []domain.JournalEntry
	idempotency map[string]domain.IdempotencyLog

	auditMu sync.Mutex
	audit   []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		slot:        make(chan struct{}, 1),
		users:       make(map[solana.PublicKey]domain.UserLedger),
		treasuries:  make(map[solana.PublicKey]domain.TreasuryLedger),
		allocations: make(map[solana.PublicKey]*domain.AllocationLedger),
		tokenVaults: make(map[solana.PublicKey]domain.TokenVault),
		swaps:       make(map[solana.PublicKey]domain.SwapConfig),
		balances:    make(map[domain.BalanceKey]uint64),
		idempotency: make(map[string]domain.IdempotencyLog),
	}
}

// Begin waits for the writer slot and opens a unit of work.
func (s *Store) Begin(ctx context.Context) (ports.LedgerTx, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return newTx(s), nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

type tx struct {
	store *Store
	done  bool

	users       map[solana.PublicKey]domain.UserLedger
	treasuries  map[solana.PublicKey]domain.TreasuryLedger
	allocations map[solana.PublicKey]*domain.AllocationLedger
	tokenVaults map[solana.PublicKey]domain.TokenVault
	swaps       map[solana.PublicKey]domain.SwapConfig
	balances    map[domain.BalanceKey]uint64
	journal     []domain.JournalEntry
	idempotency map[string]domain.IdempotencyLog
}

func newTx(s *Store) *tx {
	return &tx{
		store:       s,
		users:       make(map[solana.PublicKey]domain.UserLedger),
		treasuries:  make(map[solana.PublicKey]domain.TreasuryLedger),
		allocations: make(map[solana.PublicKey]*domain.AllocationLedger),
		tokenVaults: make(map[solana.PublicKey]domain.TokenVault),
		swaps:       make(map[solana.PublicKey]domain.SwapConfig),
		balances:    make(map[domain.BalanceKey]uint64),
		idempotency: make(map[string]domain.IdempotencyLog),
	}
}

func (t *tx) Users() ports.UserLedgerRepository        { return userRepo{t} }
func (t *tx) Treasury() ports.TreasuryRepository       { return treasuryRepo{t} }
func (t *tx) Allocations() ports.AllocationRepository  { return allocationRepo{t} }
func (t *tx) TokenVaults() ports.TokenVaultRepository  { return tokenVaultRepo{t} }
func (t *tx) SwapConfigs() ports.SwapConfigRepository  { return swapRepo{t} }
func (t *tx) Balances() ports.BalanceRepository        { return balanceRepo{t} }
func (t *tx) Journal() ports.JournalRepository         { return journalRepo{t} }
func (t *tx) Idempotency() ports.IdempotencyRepository { return idempotencyRepo{t} }

// Commit applies the overlay and releases the writer slot.
func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	s := t.store
	for k, v := range t.users {
		s.users[k] = v
	}
	for k, v := range t.treasuries {
		s.treasuries[k] = v
	}
	for k, v := range t.allocations {
		s.allocations[k] = v
	}
	for k, v := range t.tokenVaults {
		s.tokenVaults[k] = v
	}
	for k, v := range t.swaps {
		s.swaps[k] = v
	}
	for k, v := range t.balances {
		s.balances[k] = v
	}
	s.journal = append(s.journal, t.journal...)
	for k, v := range t.idempotency {
		s.idempotency[k] = v
	}
	t.finish()
	return nil
}

// Rollback discards the overlay. It is a no-op after Commit.
func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	<-t.store.slot
}

func (t *tx) check() error {
	if t.done {
		return ErrTxDone
	}
	return nil
}
