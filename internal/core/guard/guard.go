// Package guard evaluates the preconditions every ledger mutation must pass.
// It is stateless: each check reads the records it is given and returns the
// first violated rule.
package guard

import (
	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/safemath"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
)

// Features toggles the optional protocol guards.
type Features struct {
	Pause  bool
	TVLCap bool
}

// Engine checks guard invariants under a fixed feature set.
type Engine struct {
	Features Features
}

// New creates an Engine.
func New(f Features) *Engine {
	return &Engine{Features: f}
}

// NotPaused rejects when the pause feature is on and the treasury is paused.
func (e *Engine) NotPaused(t *domain.TreasuryLedger) error {
	if e.Features.Pause && t.IsPaused {
		return apperror.ErrProtocolPaused()
	}
	return nil
}

// WithinTVLCap rejects when adding amount would push TVL above the cap.
func (e *Engine) WithinTVLCap(t *domain.TreasuryLedger, amount uint64) error {
	if !e.Features.TVLCap {
		return nil
	}
	next, err := safemath.Add(t.TotalTVL, amount)
	if err != nil {
		return apperror.ErrOverflow()
	}
	if next > t.TVLCap {
		return apperror.ErrTVLCapExceeded()
	}
	return nil
}

// Active rejects inactive user ledgers.
func (e *Engine) Active(u *domain.UserLedger) error {
	if !u.IsActive {
		return apperror.ErrAccountNotActive()
	}
	return nil
}

// Authority rejects callers other than the treasury authority.
func (e *Engine) Authority(t *domain.TreasuryLedger, caller solana.PublicKey) error {
	if !t.Authority.Equals(caller) {
		return apperror.ErrUnauthorized()
	}
	return nil
}

// Owner rejects callers other than the record owner.
func (e *Engine) Owner(owner, caller solana.PublicKey) error {
	if !owner.Equals(caller) {
		return apperror.ErrUnauthorized()
	}
	return nil
}

// SavingsRate rejects rates outside [1, 90].
func (e *Engine) SavingsRate(rate uint8) error {
	if !domain.ValidSavingsRate(rate) {
		return apperror.ErrInvalidSavingsRate()
	}
	return nil
}

// PositiveAmount rejects zero amounts.
func (e *Engine) PositiveAmount(amount uint64) error {
	if amount == 0 {
		return apperror.ErrInvalidAmount()
	}
	return nil
}
