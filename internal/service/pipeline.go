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

// pipeline runs fund movements as idempotent units of work.
type pipeline struct {
	LedgerDeps
	replay replayGuard
}

func newPipeline(d LedgerDeps) pipeline {
	d = d.withDefaults()
	return pipeline{LedgerDeps: d, replay: replayGuard{cache: d.Cache, log: d.Log}}
}

// run executes fn inside one unit of work. A non-empty key makes the call
// idempotent: a repeated key returns the stored result without running fn.
func (p pipeline) run(ctx context.Context, op domain.Operation, key string, fn func(tx ports.LedgerTx) (*ports.MovementResult, error)) (res *ports.MovementResult, err error) {
	defer func() { p.Metrics.ObserveOperation(op, err) }()

	// Layer 1: Redis idempotency check
	if cached := p.replay.cached(ctx, key); cached != nil {
		return cached, nil
	}

	tx, err := begin(ctx, p.Transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Layer 2: DB idempotency check
	if logged, err := p.replay.logged(ctx, tx, key); err != nil || logged != nil {
		return logged, err
	}

	res, err = fn(tx)
	if err != nil {
		return nil, err
	}

	respJSON, err := p.replay.record(ctx, tx, key, res, p.Now())
	if err != nil {
		return nil, err
	}
	if err := commit(ctx, tx); err != nil {
		return nil, err
	}

	p.replay.remember(ctx, key, respJSON)
	return res, nil
}

// depositOutcome is what the standard deposit pipeline changed.
type depositOutcome struct {
	split    fee.Split
	user     *domain.UserLedger
	treasury *domain.TreasuryLedger
	vault    solana.PublicKey
}

// deposit runs the standard deposit: guards, fee skim, two credits and the
// ledger counters. The caller has already checked amount and ownership.
func (p pipeline) deposit(ctx context.Context, tx ports.LedgerTx, m *fundMover, owner solana.PublicKey, gross uint64) (*depositOutcome, error) {
	treasury, err := lockTreasury(ctx, tx, p.Deriver)
	if err != nil {
		return nil, err
	}
	if err := p.Guard.NotPaused(treasury); err != nil {
		return nil, err
	}
	// The cap is checked against the gross amount while TVL grows by net.
	if err := p.Guard.WithinTVLCap(treasury, gross); err != nil {
		return nil, err
	}

	user, err := lockUser(ctx, tx, p.Deriver, owner)
	if err != nil {
		return nil, err
	}
	if err := p.Guard.Active(user); err != nil {
		return nil, err
	}

	split, err := fee.Compute(gross)
	if err != nil {
		return nil, apperror.ErrOverflow()
	}

	vault, err := p.vaultOf(owner, user)
	if err != nil {
		return nil, err
	}
	treasuryVault, err := p.Deriver.Reproduce(pda.NamespaceTreasuryVault, nil, treasury.VaultBump)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if split.Fee > 0 {
		if err := m.move(ctx, owner, treasuryVault, domain.NativeMint, split.Fee, domain.LegFee, nil); err != nil {
			return nil, err
		}
		if treasury.TotalFeesCollected, err = safemath.Add(treasury.TotalFeesCollected, split.Fee); err != nil {
			return nil, apperror.ErrOverflow()
		}
	}
	if err := m.move(ctx, owner, vault, domain.NativeMint, split.Net, domain.LegPrincipal, nil); err != nil {
		return nil, err
	}

	if user.TotalSaved, err = safemath.Add(user.TotalSaved, split.Net); err != nil {
		return nil, apperror.ErrOverflow()
	}
	if user.TransactionCount, err = safemath.Add(user.TransactionCount, 1); err != nil {
		return nil, apperror.ErrOverflow()
	}
	if p.Guard.Features.TVLCap {
		if treasury.TotalTVL, err = safemath.Add(treasury.TotalTVL, split.Net); err != nil {
			return nil, apperror.ErrOverflow()
		}
	}

	if err := updateUser(ctx, tx, user, m.now); err != nil {
		return nil, err
	}
	if err := updateTreasury(ctx, tx, treasury, m.now); err != nil {
		return nil, err
	}
	return &depositOutcome{split: split, user: user, treasury: treasury, vault: vault}, nil
}

// vaultOf reproduces the owner's vault from the bump stored on the ledger.
func (p pipeline) vaultOf(owner solana.PublicKey, user *domain.UserLedger) (solana.PublicKey, error) {
	vault, err := p.Deriver.Reproduce(pda.NamespaceVault, &owner, user.VaultBump)
	if err != nil {
		return solana.PublicKey{}, apperror.InternalError(fmt.Errorf("reproduce vault: %w", err))
	}
	return vault, nil
}

func (p pipeline) afterCommit(t *domain.TreasuryLedger, collected uint64) {
	if collected > 0 {
		p.Metrics.AddFees(collected)
	}
	if t != nil {
		p.Metrics.SetTVL(t.TotalTVL)
	}
}
