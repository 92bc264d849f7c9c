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

// TreasuryServiceImpl implements ports.TreasuryService.
type TreasuryServiceImpl struct {
	pipeline
}

// NewTreasuryService creates a new TreasuryServiceImpl.
func NewTreasuryService(deps LedgerDeps) *TreasuryServiceImpl {
	return &TreasuryServiceImpl{pipeline: newPipeline(deps)}
}

// Initialize creates the singleton treasury with authority as its admin.
func (s *TreasuryServiceImpl) Initialize(ctx context.Context, authority solana.PublicKey) (*domain.TreasuryLedger, error) {
	addr, bump, err := s.Deriver.Treasury()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	_, vaultBump, err := s.Deriver.TreasuryVault()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	tx, err := begin(ctx, s.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	existing, err := tx.Treasury().Get(ctx, addr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check treasury: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyInitialized("Treasury")
	}

	now := s.Now()
	treasury := &domain.TreasuryLedger{
		Address:   addr,
		Authority: authority,
		Bump:      bump,
		VaultBump: vaultBump,
		TVLCap:    s.TVLCap,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Treasury().Create(ctx, treasury); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create treasury: %w", err))
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("authority", authority.String()).
		Uint64("tvl_cap", treasury.TVLCap).
		Msg("treasury initialized")

	return treasury, nil
}

// Withdraw moves collected fees from the treasury vault to the authority.
func (s *TreasuryServiceImpl) Withdraw(ctx context.Context, req ports.TreasuryWithdrawRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}

	key := ""
	if req.ReferenceID != "" {
		key = domain.BuildIdempotencyKey(req.Caller, domain.OperationTreasuryWithdraw, req.ReferenceID)
	}
	res, err := s.run(ctx, domain.OperationTreasuryWithdraw, key, func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		now := s.Now()
		treasury, err := lockTreasury(ctx, tx, s.Deriver)
		if err != nil {
			return nil, err
		}
		if err := s.Guard.Authority(treasury, req.Caller); err != nil {
			return nil, err
		}

		m := newFundMover(tx, s.Deriver, domain.OperationTreasuryWithdraw, req.Caller, req.ReferenceID, now)
		treasuryVault, err := s.Deriver.Reproduce(pda.NamespaceTreasuryVault, nil, treasury.VaultBump)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		signer := pda.TreasuryVaultSigner(treasury.VaultBump)
		if err := m.move(ctx, treasuryVault, req.Caller, domain.NativeMint, req.Amount, domain.LegPrincipal, &signer); err != nil {
			return nil, err
		}
		bal, err := m.balance(ctx, treasuryVault, domain.NativeMint)
		if err != nil {
			return nil, err
		}
		return &ports.MovementResult{
			Operation:   domain.OperationTreasuryWithdraw,
			ReferenceID: req.ReferenceID,
			Amount:      req.Amount,
			Net:         req.Amount,
			Balance:     bal,
			Entries:     m.entries,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("authority", req.Caller.String()).
		Uint64("amount", req.Amount).
		Msg("treasury withdrawal processed successfully")
	return res, nil
}

// TogglePause flips the protocol pause flag. Only deposits honor it.
func (s *TreasuryServiceImpl) TogglePause(ctx context.Context, caller solana.PublicKey) (*domain.TreasuryLedger, error) {
	return s.mutateTreasury(ctx, caller, func(t *domain.TreasuryLedger) error {
		t.IsPaused = !t.IsPaused
		return nil
	})
}

// UpdateTVLCap sets a new cap. It may not drop below the current TVL.
func (s *TreasuryServiceImpl) UpdateTVLCap(ctx context.Context, caller solana.PublicKey, newCap uint64) (*domain.TreasuryLedger, error) {
	return s.mutateTreasury(ctx, caller, func(t *domain.TreasuryLedger) error {
		if newCap < t.TotalTVL {
			return apperror.ErrInvalidAmount()
		}
		t.TVLCap = newCap
		return nil
	})
}

func (s *TreasuryServiceImpl) mutateTreasury(ctx context.Context, caller solana.PublicKey, fn func(t *domain.TreasuryLedger) error) (*domain.TreasuryLedger, error) {
	tx, err := begin(ctx, s.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	treasury, err := lockTreasury(ctx, tx, s.Deriver)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.Authority(treasury, caller); err != nil {
		return nil, err
	}
	if err := fn(treasury); err != nil {
		return nil, err
	}
	if err := updateTreasury(ctx, tx, treasury, s.Now()); err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	s.Log.Info().
		Bool("is_paused", treasury.IsPaused).
		Uint64("tvl_cap", treasury.TVLCap).
		Msg("treasury updated")

	return treasury, nil
}

// CreditWallet funds an externally-owned wallet. It stands in for the host
// chain's native transfers and is limited to the treasury authority.
func (s *TreasuryServiceImpl) CreditWallet(ctx context.Context, req ports.WalletCreditRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	mint := req.Mint
	if mint.IsZero() {
		mint = domain.NativeMint
	}

	res, err := s.run(ctx, domain.OperationWalletCredit, "", func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		treasury, err := lockTreasury(ctx, tx, s.Deriver)
		if err != nil {
			return nil, err
		}
		if err := s.Guard.Authority(treasury, req.Caller); err != nil {
			return nil, err
		}

		m := newFundMover(tx, s.Deriver, domain.OperationWalletCredit, req.Address, "", s.Now())
		if err := m.mint(ctx, req.Address, mint, req.Amount); err != nil {
			return nil, err
		}
		bal, err := m.balance(ctx, req.Address, mint)
		if err != nil {
			return nil, err
		}
		return &ports.MovementResult{
			Operation: domain.OperationWalletCredit,
			Amount:    req.Amount,
			Net:       req.Amount,
			Balance:   bal,
			Entries:   m.entries,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("address", req.Address.String()).
		Str("mint", mint.String()).
		Uint64("amount", req.Amount).
		Msg("wallet credited")
	return res, nil
}
