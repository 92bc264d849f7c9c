package service

import (
	"context"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/core/safemath"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
)

// TokenVaultServiceImpl implements ports.TokenVaultService. Token vaults hold
// a secondary asset per (owner, mint) and charge no protocol fee.
type TokenVaultServiceImpl struct {
	pipeline
}

// NewTokenVaultService creates a new TokenVaultServiceImpl.
func NewTokenVaultService(deps LedgerDeps) *TokenVaultServiceImpl {
	return &TokenVaultServiceImpl{pipeline: newPipeline(deps)}
}

// Initialize creates the owner's vault record for mint.
func (s *TokenVaultServiceImpl) Initialize(ctx context.Context, owner, caller, mint solana.PublicKey) (*domain.TokenVault, error) {
	if err := s.Guard.Owner(owner, caller); err != nil {
		return nil, err
	}
	if mint.IsZero() || mint.Equals(domain.NativeMint) {
		return nil, apperror.Validation("mint must be a secondary asset")
	}

	addr, bump, err := s.Deriver.TokenVault(owner, mint)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

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

	existing, err := tx.TokenVaults().Get(ctx, addr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check token vault: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyInitialized("Token vault")
	}

	now := s.Now()
	vault := &domain.TokenVault{
		Address:   addr,
		Owner:     owner,
		Mint:      mint,
		Bump:      bump,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.TokenVaults().Create(ctx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create token vault: %w", err))
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("owner", owner.String()).
		Str("mint", mint.String()).
		Msg("token vault initialized")

	return vault, nil
}

// Deposit moves amount of the vault's mint from the owner's wallet into the vault.
func (s *TokenVaultServiceImpl) Deposit(ctx context.Context, req ports.TokenAmountRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	return s.run(ctx, domain.OperationTokenDeposit, tokenKey(req, domain.OperationTokenDeposit), func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		treasury, err := lockTreasury(ctx, tx, s.Deriver)
		if err != nil {
			return nil, err
		}
		if err := s.Guard.NotPaused(treasury); err != nil {
			return nil, err
		}
		vault, err := s.lockVault(ctx, tx, req)
		if err != nil {
			return nil, err
		}

		now := s.Now()
		m := newFundMover(tx, s.Deriver, domain.OperationTokenDeposit, req.Owner, req.ReferenceID, now)
		if err := m.move(ctx, req.Owner, vault.Address, req.Mint, req.Amount, domain.LegPrincipal, nil); err != nil {
			return nil, err
		}
		if vault.TotalDeposited, err = safemath.Add(vault.TotalDeposited, req.Amount); err != nil {
			return nil, apperror.ErrOverflow()
		}
		return s.finish(ctx, tx, m, vault, req, now)
	})
}

// Withdraw moves amount from the vault back to the owner's wallet.
func (s *TokenVaultServiceImpl) Withdraw(ctx context.Context, req ports.TokenAmountRequest) (*ports.MovementResult, error) {
	if err := s.Guard.PositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}

	return s.run(ctx, domain.OperationTokenWithdraw, tokenKey(req, domain.OperationTokenWithdraw), func(tx ports.LedgerTx) (*ports.MovementResult, error) {
		vault, err := s.lockVault(ctx, tx, req)
		if err != nil {
			return nil, err
		}

		now := s.Now()
		m := newFundMover(tx, s.Deriver, domain.OperationTokenWithdraw, req.Owner, req.ReferenceID, now)
		signer := pda.TokenVaultSigner(req.Owner, req.Mint, vault.Bump)
		if err := m.move(ctx, vault.Address, req.Owner, req.Mint, req.Amount, domain.LegPrincipal, &signer); err != nil {
			return nil, err
		}
		if vault.TotalWithdrawn, err = safemath.Add(vault.TotalWithdrawn, req.Amount); err != nil {
			return nil, apperror.ErrOverflow()
		}
		return s.finish(ctx, tx, m, vault, req, now)
	})
}

// lockVault checks the owner's ledger and locks the token vault for req.Mint.
func (s *TokenVaultServiceImpl) lockVault(ctx context.Context, tx ports.LedgerTx, req ports.TokenAmountRequest) (*domain.TokenVault, error) {
	user, err := lockUser(ctx, tx, s.Deriver, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.Active(user); err != nil {
		return nil, err
	}
	addr, _, err := s.Deriver.TokenVault(req.Owner, req.Mint)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	vault, err := tx.TokenVaults().GetForUpdate(ctx, addr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock token vault: %w", err))
	}
	if vault == nil {
		return nil, apperror.ErrAccountNotFound("Token vault")
	}
	return vault, nil
}

func (s *TokenVaultServiceImpl) finish(ctx context.Context, tx ports.LedgerTx, m *fundMover, vault *domain.TokenVault, req ports.TokenAmountRequest, now time.Time) (*ports.MovementResult, error) {
	vault.UpdatedAt = now
	if err := tx.TokenVaults().Update(ctx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update token vault: %w", err))
	}
	bal, err := m.balance(ctx, vault.Address, req.Mint)
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("owner", req.Owner.String()).
		Str("mint", req.Mint.String()).
		Str("operation", string(m.op)).
		Uint64("amount", req.Amount).
		Msg("token vault movement processed")

	return &ports.MovementResult{
		Operation:   m.op,
		ReferenceID: req.ReferenceID,
		Amount:      req.Amount,
		Net:         req.Amount,
		Balance:     bal,
		Entries:     m.entries,
	}, nil
}

// ConfigureAutoSwap stores the owner's swap target and threshold. Enabling is
// refused: no exchange integration exists.
func (s *TokenVaultServiceImpl) ConfigureAutoSwap(ctx context.Context, req ports.AutoSwapRequest) (*domain.SwapConfig, error) {
	if err := s.Guard.Owner(req.Owner, req.Caller); err != nil {
		return nil, err
	}
	if req.Enabled {
		return nil, apperror.ErrExchangeUnavailable()
	}

	addr, bump, err := s.Deriver.SwapConfig(req.Owner)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	tx, err := begin(ctx, s.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	user, err := lockUser(ctx, tx, s.Deriver, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.Active(user); err != nil {
		return nil, err
	}

	cfg := &domain.SwapConfig{
		Address:    addr,
		Owner:      req.Owner,
		TargetMint: req.TargetMint,
		MinAmount:  req.MinAmount,
		Bump:       bump,
		UpdatedAt:  s.Now(),
	}
	if err := tx.SwapConfigs().Upsert(ctx, cfg); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save swap config: %w", err))
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}
	return cfg, nil
}

func tokenKey(req ports.TokenAmountRequest, op domain.Operation) string {
	if req.ReferenceID == "" {
		return ""
	}
	return domain.BuildIdempotencyKey(req.Owner, op, req.Mint.String()+":"+req.ReferenceID)
}
