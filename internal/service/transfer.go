package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/core/safemath"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// fundMover moves balances inside one unit of work and journals every leg.
// Movements out of a program-controlled address require a signer that
// reproduces it; movements out of a wallet rely on the caller check done by
// the service before the mover is used.
type fundMover struct {
	tx        ports.LedgerTx
	deriver   *pda.Deriver
	op        domain.Operation
	reference string
	owner     solana.PublicKey
	now       time.Time
	entries   []domain.JournalEntry
}

func newFundMover(tx ports.LedgerTx, d *pda.Deriver, op domain.Operation, owner solana.PublicKey, reference string, now time.Time) *fundMover {
	return &fundMover{tx: tx, deriver: d, op: op, owner: owner, reference: reference, now: now}
}

// move transfers amount of mint from -> to. signer is nil for wallet debits.
func (m *fundMover) move(ctx context.Context, from, to, mint solana.PublicKey, amount uint64, leg domain.Leg, signer *pda.Signer) error {
	if signer != nil {
		if err := m.deriver.Authorize(*signer, from); err != nil {
			if errors.Is(err, pda.ErrAddressMismatch) {
				return apperror.ErrUnauthorized()
			}
			return apperror.InternalError(fmt.Errorf("authorize %s: %w", from, err))
		}
	}

	fromKey := domain.BalanceKey{Address: from, Mint: mint}
	toKey := domain.BalanceKey{Address: to, Mint: mint}

	fromBal, err := m.tx.Balances().GetForUpdate(ctx, fromKey)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock balance %s: %w", from, err))
	}
	if fromBal < amount {
		return apperror.ErrInsufficientFunds()
	}
	toBal, err := m.tx.Balances().GetForUpdate(ctx, toKey)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock balance %s: %w", to, err))
	}
	newTo, err := safemath.Add(toBal, amount)
	if err != nil {
		return apperror.ErrOverflow()
	}

	if err := m.tx.Balances().Set(ctx, fromKey, fromBal-amount); err != nil {
		return apperror.InternalError(fmt.Errorf("debit %s: %w", from, err))
	}
	if err := m.tx.Balances().Set(ctx, toKey, newTo); err != nil {
		return apperror.InternalError(fmt.Errorf("credit %s: %w", to, err))
	}
	return m.journal(ctx, from, to, mint, amount, leg)
}

// mint credits amount to an address from outside the ledger.
func (m *fundMover) mint(ctx context.Context, to, mint solana.PublicKey, amount uint64) error {
	key := domain.BalanceKey{Address: to, Mint: mint}
	bal, err := m.tx.Balances().GetForUpdate(ctx, key)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock balance %s: %w", to, err))
	}
	next, err := safemath.Add(bal, amount)
	if err != nil {
		return apperror.ErrOverflow()
	}
	if err := m.tx.Balances().Set(ctx, key, next); err != nil {
		return apperror.InternalError(fmt.Errorf("credit %s: %w", to, err))
	}
	return m.journal(ctx, solana.PublicKey{}, to, mint, amount, domain.LegPrincipal)
}

func (m *fundMover) journal(ctx context.Context, from, to, mint solana.PublicKey, amount uint64, leg domain.Leg) error {
	e := domain.JournalEntry{
		ID:          uuid.New(),
		Operation:   m.op,
		Leg:         leg,
		ReferenceID: m.reference,
		Owner:       m.owner,
		From:        from,
		To:          to,
		Mint:        mint,
		Amount:      amount,
		CreatedAt:   m.now,
	}
	e.Seal()
	if err := m.tx.Journal().Append(ctx, &e); err != nil {
		return apperror.InternalError(fmt.Errorf("append journal: %w", err))
	}
	m.entries = append(m.entries, e)
	return nil
}

// balance reads the current balance of address for mint inside the unit of work.
func (m *fundMover) balance(ctx context.Context, address, mint solana.PublicKey) (uint64, error) {
	bal, err := m.tx.Balances().Get(ctx, domain.BalanceKey{Address: address, Mint: mint})
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("read balance %s: %w", address, err))
	}
	return bal, nil
}
