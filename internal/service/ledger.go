package service

import (
	"context"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/guard"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// LedgerDeps bundles the collaborators shared by every ledger service.
type LedgerDeps struct {
	Transactor ports.Transactor
	Deriver    *pda.Deriver
	Guard      *guard.Engine
	Cache      ports.IdempotencyCache
	Metrics    ports.LedgerMetrics
	Log        zerolog.Logger
	// TVLCap seeds the treasury at initialization. Zero means domain.DefaultTVLCap.
	TVLCap uint64
	Now    func() time.Time
}

func (d LedgerDeps) withDefaults() LedgerDeps {
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Now == nil {
		// Microsecond precision matches timestamptz, so sealed digests survive a round trip.
		d.Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
	if d.TVLCap == 0 {
		d.TVLCap = domain.DefaultTVLCap
	}
	return d
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(domain.Operation, error) {}
func (nopMetrics) AddFees(uint64)                          {}
func (nopMetrics) SetTVL(uint64)                           {}
func (nopMetrics) SetReconcileDrift(string, float64)       {}

// begin opens a unit of work, mapping failures to SYS_001.
func begin(ctx context.Context, t ports.Transactor) (ports.LedgerTx, error) {
	tx, err := t.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	return tx, nil
}

func commit(ctx context.Context, tx ports.LedgerTx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// lockTreasury loads the singleton treasury for update.
func lockTreasury(ctx context.Context, tx ports.LedgerTx, d *pda.Deriver) (*domain.TreasuryLedger, error) {
	addr, _, err := d.Treasury()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	t, err := tx.Treasury().GetForUpdate(ctx, addr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
	}
	if t == nil {
		return nil, apperror.ErrAccountNotFound("Treasury")
	}
	return t, nil
}

// lockUser loads the owner's user ledger for update.
func lockUser(ctx context.Context, tx ports.LedgerTx, d *pda.Deriver, owner solana.PublicKey) (*domain.UserLedger, error) {
	addr, _, err := d.UserLedger(owner)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	u, err := tx.Users().GetForUpdate(ctx, addr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock user ledger: %w", err))
	}
	if u == nil {
		return nil, apperror.ErrAccountNotFound("User ledger")
	}
	return u, nil
}

func updateUser(ctx context.Context, tx ports.LedgerTx, u *domain.UserLedger, now time.Time) error {
	u.UpdatedAt = now
	if err := tx.Users().Update(ctx, u); err != nil {
		return apperror.InternalError(fmt.Errorf("update user ledger: %w", err))
	}
	return nil
}

func updateTreasury(ctx context.Context, tx ports.LedgerTx, t *domain.TreasuryLedger, now time.Time) error {
	t.UpdatedAt = now
	if err := tx.Treasury().Update(ctx, t); err != nil {
		return apperror.InternalError(fmt.Errorf("update treasury: %w", err))
	}
	return nil
}
