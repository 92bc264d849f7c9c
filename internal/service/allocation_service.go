package service

import (
	"context"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/fee"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/core/safemath"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
)

// AllocationServiceImpl implements ports.AllocationService. Allocations are
// bookkeeping over the owner's single pooled vault: they never reserve funds,
// so a withdrawal must pass both the allocation's tracked balance and the
// vault's real balance.
type AllocationServiceImpl struct {
	pipeline
}

// NewAllocationService creates a new AllocationServiceImpl.
func NewAllocationService(deps LedgerDeps) *AllocationServiceImpl {
	return &AllocationServiceImpl{pipeline: newPipeline(deps)}
}

// Create appends a named allocation. Percentages are not required to sum to 100.
func (s *AllocationServiceImpl) Create(ctx context.Context, req ports.CreateAllocationRequest) (*domain.AllocationLedger, error) {
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}
	if !domain.ValidAllocationName(req.Name) {
		return nil, apperror.ErrInvalidAllocationName()
	}
	if !domain.ValidAllocationPercent(req.Percentage) {
		return nil, apperror.ErrInvalidAllocationPercentage()
	}

	return s.mutateAllocations(ctx, req.Owner, func(l *domain.AllocationLedger) error {
		if len(l.Allocations) >= domain.MaxAllocations {
			return apperror.ErrAllocationLimitReached()
		}
		l.Allocations = append(l.Allocations, domain.Allocation{
			Name:       req.Name,
			Percentage: req.Percentage,
			IsActive:   true,
		})
		return nil
	})
}

// Update renames or re-weights an active allocation.
func (s *AllocationServiceImpl) Update(ctx context.Context, req ports.UpdateAllocationRequest) (*domain.AllocationLedger, error) {
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}
	if req.Name != nil && !domain.ValidAllocationName(*req.Name) {
		return nil, apperror.ErrInvalidAllocationName()
	}
	if req.Percentage != nil && !domain.ValidAllocationPercent(*req.Percentage) {
		return nil, apperror.ErrInvalidAllocationPercentage()
	}

	return s.mutateAllocations(ctx, req.Owner, func(l *domain.AllocationLedger) error {
		a, err := activeAllocation(l, req.Index)
		if err != nil {
			return err
		}
		if req.Name != nil {
			a.Name = *req.Name
		}
		if req.Percentage != nil {
			a.Percentage = *req.Percentage
		}
		return nil
	})
}

// Remove deactivates an allocation. Its tracked totals are kept.
func (s *AllocationServiceImpl) Remove(ctx context.Context, owner, caller solana.PublicKey, index int) (*domain.AllocationLedger, error) {
	if err := s.Guard.Owner(owner, caller); err != nil {
		return nil, err
	}
	return s.mutateAllocations(ctx, owner, func(l *domain.AllocationLedger) error {
		a, err := activeAllocation(l, index)
		if err != nil {
			return err
		}
		a.IsActive = false
		a.Percentage = 0
		return nil
	})
}

func (s *AllocationServiceImpl) mutateAllocations(ctx context.Context, owner solana.PublicKey, fn func(l *domain.AllocationLedger) error) (*domain.AllocationLedger, error) {
	tx, err := begin(ctx, s.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	user, err := lockUser(ctx, tx, s.Deriver, owner)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.Active(user); err != nil {
		return nil, err
	}

	now := s.Now()
	ledger, created, err := s.lockOrNewLedger(ctx, tx, owner, now)
	if err != nil {
		return nil, err
	}
	if err := fn(ledger); err != nil {
		return nil, err
	}
	if err := saveLedger(ctx, tx, ledger, created, now); err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("owner", owner.String()).
		Int("allocations", len(ledger.Allocations)).
		Msg("allocations updated")

	return ledger, nil
}

// Deposit runs the standard deposit once and then credits every active
// allocation with its own floor(net * pct / 100). Rounding drift stays in the vault.
func (s *AllocationServiceImpl) Deposit(ctx context.Context, req ports.AmountRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	var out *depositOutcome
	res, err := s.run(ctx, domain.OperationAllocationDeposit, idempotencyKey(req, domain.OperationAllocationDeposit), func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		now := s.Now()
		m := newFundMover(tx, s.Deriver, domain.OperationAllocationDeposit, req.Owner, req.ReferenceID, now)

		var err error
		out, err = s.deposit(ctx, tx, m, req.Owner, req.Amount)
		if err != nil {
			return nil, err
		}

		ledger, created, err := s.lockOrNewLedger(ctx, tx, req.Owner, now)
		if err != nil {
			return nil, err
		}
		for i := range ledger.Allocations {
			a := &ledger.Allocations[i]
			if !a.IsActive || a.Percentage == 0 {
				continue
			}
			share, err := fee.Share(out.split.Net, a.Percentage)
			if err != nil {
				return nil, apperror.ErrOverflow()
			}
			if a.TotalSaved, err = safemath.Add(a.TotalSaved, share); err != nil {
				return nil, apperror.ErrOverflow()
			}
		}
		if err := saveLedger(ctx, tx, ledger, created, now); err != nil {
			return nil, err
		}

		bal, err := m.balance(ctx, out.vault, domain.NativeMint)
		if err != nil {
			return nil, err
		}
		return &ports.MovementResult{
			Operation:   domain.OperationAllocationDeposit,
			ReferenceID: req.ReferenceID,
			Amount:      req.Amount,
			Fee:         out.split.Fee,
			Net:         out.split.Net,
			Balance:     bal,
			Entries:     m.entries,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.afterCommit(out.treasury, out.split.Fee)
	}
	s.Log.Info().
		Str("owner", req.Owner.String()).
		Uint64("amount", req.Amount).
		Uint64("net", res.Net).
		Msg("allocation deposit processed successfully")
	return res, nil
}

// Withdraw pays amount from the pooled vault against one allocation's tracked
// balance. No fee is charged and TVL is left unchanged.
func (s *AllocationServiceImpl) Withdraw(ctx context.Context, req ports.AllocationWithdrawRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	key := idempotencyKey(req.AmountRequest, domain.OperationAllocationWithdraw)
	if key != "" {
		key = fmt.Sprintf("%s:%d", key, req.Index)
	}
	res, err := s.run(ctx, domain.OperationAllocationWithdraw, key, func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		now := s.Now()
		m := newFundMover(tx, s.Deriver, domain.OperationAllocationWithdraw, req.Owner, req.ReferenceID, now)

		user, err := lockUser(ctx, tx, s.Deriver, req.Owner)
		if err != nil {
			return nil, err
		}
		if err := s.Guard.Active(user); err != nil {
			return nil, err
		}
		addr, _, err := s.Deriver.AllocationLedger(req.Owner)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		ledger, err := tx.Allocations().GetForUpdate(ctx, addr)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock allocations: %w", err))
		}
		if ledger == nil {
			return nil, apperror.ErrAllocationNotFound()
		}
		a, err := activeAllocation(ledger, req.Index)
		if err != nil {
			return nil, err
		}
		if req.Amount > a.Available() {
			return nil, apperror.ErrInsufficientFunds()
		}

		vault, err := s.vaultOf(req.Owner, user)
		if err != nil {
			return nil, err
		}
		pooled, err := m.balance(ctx, vault, domain.NativeMint)
		if err != nil {
			return nil, err
		}
		if pooled < req.Amount {
			return nil, apperror.ErrInsufficientFunds()
		}

		signer := pda.VaultSigner(req.Owner, user.VaultBump)
		if err := m.move(ctx, vault, req.Owner, domain.NativeMint, req.Amount, domain.LegPrincipal, &signer); err != nil {
			return nil, err
		}

		if a.TotalWithdrawn, err = safemath.Add(a.TotalWithdrawn, req.Amount); err != nil {
			return nil, apperror.ErrOverflow()
		}
		if user.TotalWithdrawn, err = safemath.Add(user.TotalWithdrawn, req.Amount); err != nil {
			return nil, apperror.ErrOverflow()
		}
		if err := saveLedger(ctx, tx, ledger, false, now); err != nil {
			return nil, err
		}
		if err := updateUser(ctx, tx, user, now); err != nil {
			return nil, err
		}

		return &ports.MovementResult{
			Operation:   domain.OperationAllocationWithdraw,
			ReferenceID: req.ReferenceID,
			Amount:      req.Amount,
			Net:         req.Amount,
			Balance:     pooled - req.Amount,
			Entries:     m.entries,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("owner", req.Owner.String()).
		Int("index", req.Index).
		Uint64("amount", req.Amount).
		Msg("allocation withdrawal processed successfully")
	return res, nil
}

// lockOrNewLedger returns the owner's allocation ledger, creating it in memory
// on first use. created reports whether the caller must insert it.
func (s *AllocationServiceImpl) lockOrNewLedger(ctx context.Context, tx ports.LedgerTx, owner solana.PublicKey, now time.Time) (*domain.AllocationLedger, bool, error) {
	addr, bump, err := s.Deriver.AllocationLedger(owner)
	if err != nil {
		return nil, false, apperror.InternalError(err)
	}
	ledger, err := tx.Allocations().GetForUpdate(ctx, addr)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("lock allocations: %w", err))
	}
	if ledger != nil {
		return ledger, false, nil
	}
	return &domain.AllocationLedger{
		Address:   addr,
		Owner:     owner,
		Bump:      bump,
		CreatedAt: now,
		UpdatedAt: now,
	}, true, nil
}

func saveLedger(ctx context.Context, tx ports.LedgerTx, l *domain.AllocationLedger, created bool, now time.Time) error {
	l.UpdatedAt = now
	if created {
		if err := tx.Allocations().Create(ctx, l); err != nil {
			return apperror.InternalError(fmt.Errorf("create allocations: %w", err))
		}
		return nil
	}
	if err := tx.Allocations().Update(ctx, l); err != nil {
		return apperror.InternalError(fmt.Errorf("update allocations: %w", err))
	}
	return nil
}

// activeAllocation returns a pointer into l for an in-range, active index.
func activeAllocation(l *domain.AllocationLedger, index int) (*domain.Allocation, error) {
	if index < 0 || index >= len(l.Allocations) {
		return nil, apperror.ErrAllocationNotFound()
	}
	a := &l.Allocations[index]
	if !a.IsActive {
		return nil, apperror.ErrAllocationNotFound()
	}
	return a, nil
}
