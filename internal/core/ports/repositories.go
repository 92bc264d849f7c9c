package ports

import (
	"context"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
)

// UserLedgerRepository persists user savings records.
// Get returns (nil, nil) when the record does not exist.
type UserLedgerRepository interface {
	Create(ctx context.Context, user *domain.UserLedger) error
	Get(ctx context.Context, address solana.PublicKey) (*domain.UserLedger, error)
	GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.UserLedger, error)
	Update(ctx context.Context, user *domain.UserLedger) error
	List(ctx context.Context, offset, limit int) ([]domain.UserLedger, error)
	Count(ctx context.Context) (total int64, active int64, err error)
}

// TreasuryRepository persists the singleton treasury record.
type TreasuryRepository interface {
	Create(ctx context.Context, treasury *domain.TreasuryLedger) error
	Get(ctx context.Context, address solana.PublicKey) (*domain.TreasuryLedger, error)
	GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.TreasuryLedger, error)
	Update(ctx context.Context, treasury *domain.TreasuryLedger) error
}

// AllocationRepository persists allocation ledgers.
type AllocationRepository interface {
	Create(ctx context.Context, ledger *domain.AllocationLedger) error
	Get(ctx context.Context, address solana.PublicKey) (*domain.AllocationLedger, error)
	GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.AllocationLedger, error)
	Update(ctx context.Context, ledger *domain.AllocationLedger) error
}

// TokenVaultRepository persists secondary-asset vault records.
type TokenVaultRepository interface {
	Create(ctx context.Context, vault *domain.TokenVault) error
	Get(ctx context.Context, address solana.PublicKey) (*domain.TokenVault, error)
	GetForUpdate(ctx context.Context, address solana.PublicKey) (*domain.TokenVault, error)
	Update(ctx context.Context, vault *domain.TokenVault) error
}

// SwapConfigRepository persists auto-swap preferences.
type SwapConfigRepository interface {
	Get(ctx context.Context, address solana.PublicKey) (*domain.SwapConfig, error)
	Upsert(ctx context.Context, cfg *domain.SwapConfig) error
}

// BalanceRepository is the balance book. Missing rows read as zero.
type BalanceRepository interface {
	Get(ctx context.Context, key domain.BalanceKey) (uint64, error)
	GetForUpdate(ctx context.Context, key domain.BalanceKey) (uint64, error)
	Set(ctx context.Context, key domain.BalanceKey, amount uint64) error
}

// JournalRepository appends and lists fund-movement entries.
type JournalRepository interface {
	Append(ctx context.Context, entry *domain.JournalEntry) error
	ListByOwner(ctx context.Context, params JournalListParams) ([]domain.JournalEntry, int64, error)
}

// JournalListParams holds filter + pagination for listing journal entries.
type JournalListParams struct {
	Owner     solana.PublicKey
	Operation *domain.Operation
	Page      int
	PageSize  int
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit log rows.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// LedgerTx is one all-or-nothing unit of work over every ledger record.
// Records read with GetForUpdate stay locked until Commit or Rollback.
// Rollback after Commit is a no-op.
type LedgerTx interface {
	Users() UserLedgerRepository
	Treasury() TreasuryRepository
	Allocations() AllocationRepository
	TokenVaults() TokenVaultRepository
	SwapConfigs() SwapConfigRepository
	Balances() BalanceRepository
	Journal() JournalRepository
	Idempotency() IdempotencyRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transactor opens ledger units of work.
type Transactor interface {
	Begin(ctx context.Context) (LedgerTx, error)
}
