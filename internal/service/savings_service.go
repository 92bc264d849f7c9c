package service

import (
	"context"
	"fmt"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/fee"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/core/safemath"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
)

// SavingsServiceImpl implements ports.SavingsService.
type SavingsServiceImpl struct {
	pipeline
}

// NewSavingsService creates a new SavingsServiceImpl.
func NewSavingsService(deps LedgerDeps) *SavingsServiceImpl {
	return &SavingsServiceImpl{pipeline: newPipeline(deps)}
}

// InitializeUser creates the owner's user ledger and records its vault bump.
func (s *SavingsServiceImpl) InitializeUser(ctx context.Context, req ports.InitializeUserRequest) (*domain.UserLedger, error) {
	if err := s.Guard.SavingsRate(req.SavingsRate); err != nil {
		return nil, err
	}

	addr, bump, err := s.Deriver.UserLedger(req.Owner)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	_, vaultBump, err := s.Deriver.Vault(req.Owner)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	tx, err := begin(ctx, s.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	existing, err := tx.Users().Get(ctx, addr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check user ledger: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyInitialized("User ledger")
	}

	now := s.Now()
	user := &domain.UserLedger{
		Address:     addr,
		Owner:       req.Owner,
		SavingsRate: req.SavingsRate,
		IsActive:    true,
		Bump:        bump,
		VaultBump:   vaultBump,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user ledger: %w", err))
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("owner", req.Owner.String()).
		Uint8("savings_rate", req.SavingsRate).
		Msg("user ledger initialized")

	return user, nil
}

// UpdateSavingsRate changes the share process_transfer routes into the vault.
func (s *SavingsServiceImpl) UpdateSavingsRate(ctx context.Context, req ports.SavingsRateRequest) (*domain.UserLedger, error) {
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}
	if err := s.Guard.SavingsRate(req.SavingsRate); err != nil {
		return nil, err
	}
	return s.mutateUser(ctx, req.Owner, func(u *domain.UserLedger) error {
		if err := s.Guard.Active(u); err != nil {
			return err
		}
		u.SavingsRate = req.SavingsRate
		return nil
	})
}

// Deactivate marks the ledger inactive. Every mutation except Reactivate is then rejected.
func (s *SavingsServiceImpl) Deactivate(ctx context.Context, owner, caller solana.PublicKey) (*domain.UserLedger, error) {
	if err := s.Guard.Owner(owner, caller); err != nil {
		return nil, err
	}
	return s.mutateUser(ctx, owner, func(u *domain.UserLedger) error {
		u.IsActive = false
		return nil
	})
}

// Reactivate marks the ledger active again.
func (s *SavingsServiceImpl) Reactivate(ctx context.Context, owner, caller solana.PublicKey) (*domain.UserLedger, error) {
	if err := s.Guard.Owner(owner, caller); err != nil {
		return nil, err
	}
	return s.mutateUser(ctx, owner, func(u *domain.UserLedger) error {
		u.IsActive = true
		return nil
	})
}

func (s *SavingsServiceImpl) mutateUser(ctx context.Context, owner solana.PublicKey, fn func(u *domain.UserLedger) error) (*domain.UserLedger, error) {
	tx, err := begin(ctx, s.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	user, err := lockUser(ctx, tx, s.Deriver, owner)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := updateUser(ctx, tx, user, s.Now()); err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("owner", owner.String()).
		Uint8("savings_rate", user.SavingsRate).
		Bool("is_active", user.IsActive).
		Msg("user ledger updated")

	return user, nil
}

// Deposit moves amount from the owner's wallet: the fee to the treasury vault
// and the rest to the owner's vault.
func (s *SavingsServiceImpl) Deposit(ctx context.Context, req ports.AmountRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	var out *depositOutcome
	res, err := s.run(ctx, domain.OperationDeposit, idempotencyKey(req, domain.OperationDeposit), func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		m := newFundMover(tx, s.Deriver, domain.OperationDeposit, req.Owner, req.ReferenceID, s.Now())
		var err error
		out, err = s.deposit(ctx, tx, m, req.Owner, req.Amount)
		if err != nil {
			return nil, err
		}
		bal, err := m.balance(ctx, out.vault, domain.NativeMint)
		if err != nil {
			return nil, err
		}
		return &ports.MovementResult{
			Operation:   domain.OperationDeposit,
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
		s.Log.Info().
			Str("owner", req.Owner.String()).
			Uint64("amount", req.Amount).
			Uint64("fee", out.split.Fee).
			Uint64("net", out.split.Net).
			Msg("deposit processed successfully")
	}
	return res, nil
}

// Withdraw pays amount from the owner's vault to the owner and charges the fee
// on top, so the vault must hold amount + fee. Pause does not block withdrawals.
func (s *SavingsServiceImpl) Withdraw(ctx context.Context, req ports.AmountRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	var (
		treasury *domain.TreasuryLedger
		charged  uint64
	)
	res, err := s.run(ctx, domain.OperationWithdraw, idempotencyKey(req, domain.OperationWithdraw), func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		now := s.Now()
		m := newFundMover(tx, s.Deriver, domain.OperationWithdraw, req.Owner, req.ReferenceID, now)

		var err error
		treasury, err = lockTreasury(ctx, tx, s.Deriver)
		if err != nil {
			return nil, err
		}
		user, err := lockUser(ctx, tx, s.Deriver, req.Owner)
		if err != nil {
			return nil, err
		}
		if err := s.Guard.Active(user); err != nil {
			return nil, err
		}

		wFee, err := fee.Of(req.Amount)
		if err != nil {
			return nil, apperror.ErrOverflow()
		}
		totalNeeded, err := safemath.Add(req.Amount, wFee)
		if err != nil {
			return nil, apperror.ErrOverflow()
		}

		vault, err := s.vaultOf(req.Owner, user)
		if err != nil {
			return nil, err
		}
		vaultBal, err := m.balance(ctx, vault, domain.NativeMint)
		if err != nil {
			return nil, err
		}
		if vaultBal < totalNeeded {
			return nil, apperror.ErrInsufficientFunds()
		}

		signer := pda.VaultSigner(req.Owner, user.VaultBump)
		if err := m.move(ctx, vault, req.Owner, domain.NativeMint, req.Amount, domain.LegPrincipal, &signer); err != nil {
			return nil, err
		}
		if wFee > 0 {
			treasuryVault, err := s.Deriver.Reproduce(pda.NamespaceTreasuryVault, nil, treasury.VaultBump)
			if err != nil {
				return nil, apperror.InternalError(err)
			}
			if err := m.move(ctx, vault, treasuryVault, domain.NativeMint, wFee, domain.LegFee, &signer); err != nil {
				return nil, err
			}
			if treasury.TotalFeesCollected, err = safemath.Add(treasury.TotalFeesCollected, wFee); err != nil {
				return nil, apperror.ErrOverflow()
			}
		}

		if user.TotalWithdrawn, err = safemath.Add(user.TotalWithdrawn, req.Amount); err != nil {
			return nil, apperror.ErrOverflow()
		}
		if user.TransactionCount, err = safemath.Add(user.TransactionCount, 1); err != nil {
			return nil, apperror.ErrOverflow()
		}
		if s.Guard.Features.TVLCap {
			treasury.TotalTVL = safemath.SaturatingSub(treasury.TotalTVL, req.Amount)
		}

		if err := updateUser(ctx, tx, user, now); err != nil {
			return nil, err
		}
		if err := updateTreasury(ctx, tx, treasury, now); err != nil {
			return nil, err
		}
		charged = wFee

		return &ports.MovementResult{
			Operation:   domain.OperationWithdraw,
			ReferenceID: req.ReferenceID,
			Amount:      req.Amount,
			Fee:         wFee,
			Net:         req.Amount,
			Balance:     vaultBal - totalNeeded,
			Entries:     m.entries,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(treasury, charged)
	s.Log.Info().
		Str("owner", req.Owner.String()).
		Uint64("amount", req.Amount).
		Uint64("fee", res.Fee).
		Msg("withdrawal processed successfully")
	return res, nil
}

// ProcessTransfer routes savings_rate percent of a transfer amount from the
// owner's wallet into the vault. No fee, no TVL change.
func (s *SavingsServiceImpl) ProcessTransfer(ctx context.Context, req ports.AmountRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	res, err := s.run(ctx, domain.OperationProcessTransfer, idempotencyKey(req, domain.OperationProcessTransfer), func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		now := s.Now()
		m := newFundMover(tx, s.Deriver, domain.OperationProcessTransfer, req.Owner, req.ReferenceID, now)

		user, err := lockUser(ctx, tx, s.Deriver, req.Owner)
		if err != nil {
			return nil, err
		}
		if err := s.Guard.Active(user); err != nil {
			return nil, err
		}

		saved, err := fee.Share(req.Amount, user.SavingsRate)
		if err != nil {
			return nil, apperror.ErrOverflow()
		}
		if saved == 0 {
			return nil, apperror.ErrInvalidAmount()
		}

		vault, err := s.vaultOf(req.Owner, user)
		if err != nil {
			return nil, err
		}
		if err := m.move(ctx, req.Owner, vault, domain.NativeMint, saved, domain.LegPrincipal, nil); err != nil {
			return nil, err
		}

		if user.TotalSaved, err = safemath.Add(user.TotalSaved, saved); err != nil {
			return nil, apperror.ErrOverflow()
		}
		if user.TransactionCount, err = safemath.Add(user.TransactionCount, 1); err != nil {
			return nil, apperror.ErrOverflow()
		}
		if err := updateUser(ctx, tx, user, now); err != nil {
			return nil, err
		}

		bal, err := m.balance(ctx, vault, domain.NativeMint)
		if err != nil {
			return nil, err
		}
		return &ports.MovementResult{
			Operation:   domain.OperationProcessTransfer,
			ReferenceID: req.ReferenceID,
			Amount:      req.Amount,
			Net:         saved,
			Balance:     bal,
			Entries:     m.entries,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("owner", req.Owner.String()).
		Uint64("transfer_amount", req.Amount).
		Uint64("saved", res.Net).
		Msg("auto-save processed successfully")
	return res, nil
}
