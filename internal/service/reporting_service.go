package service

import (
	"context"
	"fmt"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	transactor ports.Transactor
	deriver    *pda.Deriver
}

// NewReportingService creates a new reporting service.
func NewReportingService(transactor ports.Transactor, deriver *pda.Deriver) ports.ReportingService {
	return &reportingService{transactor: transactor, deriver: deriver}
}

// view runs fn in a unit of work that is always rolled back.
func (s *reportingService) view(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	tx, err := begin(ctx, s.transactor)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	return fn(tx)
}

// GetProgramStats returns protocol-wide aggregates.
func (s *reportingService) GetProgramStats(ctx context.Context) (*ports.ProgramStats, error) {
	var stats ports.ProgramStats
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		total, active, err := tx.Users().Count(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("count users: %w", err))
		}
		stats.TotalUsers = total
		stats.ActiveUsers = active

		addr, _, err := s.deriver.Treasury()
		if err != nil {
			return apperror.InternalError(err)
		}
		t, err := tx.Treasury().Get(ctx, addr)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get treasury: %w", err))
		}
		if t == nil {
			return nil
		}
		stats.TotalFeesCollected = t.TotalFeesCollected
		stats.TotalTVL = t.TotalTVL
		stats.TVLCap = t.TVLCap
		stats.IsPaused = t.IsPaused

		vault, _, err := s.deriver.TreasuryVault()
		if err != nil {
			return apperror.InternalError(err)
		}
		stats.TreasuryBalance, err = tx.Balances().Get(ctx, domain.NativeBalanceKey(vault))
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get treasury balance: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetTreasury returns the treasury record.
func (s *reportingService) GetTreasury(ctx context.Context) (*domain.TreasuryLedger, error) {
	var out *domain.TreasuryLedger
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		addr, _, err := s.deriver.Treasury()
		if err != nil {
			return apperror.InternalError(err)
		}
		out, err = tx.Treasury().Get(ctx, addr)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get treasury: %w", err))
		}
		if out == nil {
			return apperror.ErrAccountNotFound("Treasury")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns the owner's ledger and vault balance.
func (s *reportingService) GetUser(ctx context.Context, owner solana.PublicKey) (*ports.UserView, error) {
	var out *ports.UserView
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		addr, _, err := s.deriver.UserLedger(owner)
		if err != nil {
			return apperror.InternalError(err)
		}
		u, err := tx.Users().Get(ctx, addr)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get user ledger: %w", err))
		}
		if u == nil {
			return apperror.ErrAccountNotFound("User ledger")
		}
		vault, err := s.deriver.Reproduce(pda.NamespaceVault, &owner, u.VaultBump)
		if err != nil {
			return apperror.InternalError(err)
		}
		bal, err := tx.Balances().Get(ctx, domain.NativeBalanceKey(vault))
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get vault balance: %w", err))
		}
		out = &ports.UserView{Ledger: *u, VaultAddress: vault, VaultBalance: bal}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetAllocations returns the owner's allocation ledger.
func (s *reportingService) GetAllocations(ctx context.Context, owner solana.PublicKey) (*domain.AllocationLedger, error) {
	var out *domain.AllocationLedger
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		addr, _, err := s.deriver.AllocationLedger(owner)
		if err != nil {
			return apperror.InternalError(err)
		}
		out, err = tx.Allocations().Get(ctx, addr)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get allocations: %w", err))
		}
		if out == nil {
			return apperror.ErrAccountNotFound("Allocation ledger")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTokenVault returns the owner's vault for mint and its balance.
func (s *reportingService) GetTokenVault(ctx context.Context, owner, mint solana.PublicKey) (*ports.TokenVaultView, error) {
	var out *ports.TokenVaultView
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		addr, _, err := s.deriver.TokenVault(owner, mint)
		if err != nil {
			return apperror.InternalError(err)
		}
		v, err := tx.TokenVaults().Get(ctx, addr)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get token vault: %w", err))
		}
		if v == nil {
			return apperror.ErrAccountNotFound("Token vault")
		}
		bal, err := tx.Balances().Get(ctx, domain.BalanceKey{Address: addr, Mint: mint})
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get token vault balance: %w", err))
		}
		out = &ports.TokenVaultView{Vault: *v, Balance: bal}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance returns the balance of any address.
func (s *reportingService) GetBalance(ctx context.Context, address, mint solana.PublicKey) (uint64, error) {
	if mint.IsZero() {
		mint = domain.NativeMint
	}
	var bal uint64
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		var err error
		bal, err = tx.Balances().Get(ctx, domain.BalanceKey{Address: address, Mint: mint})
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get balance: %w", err))
		}
		return nil
	})
	return bal, err
}

// ListJournal returns a page of the owner's journal, newest first.
func (s *reportingService) ListJournal(ctx context.Context, params ports.JournalListParams) ([]domain.JournalEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	var (
		entries []domain.JournalEntry
		total   int64
	)
	err := s.view(ctx, func(tx ports.LedgerTx) error {
		var err error
		entries, total, err = tx.Journal().ListByOwner(ctx, params)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("list journal: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
