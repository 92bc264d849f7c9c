package service

import (
	"testing"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreasuryService_Initialize(t *testing.T) {
	f := newLedgerFixture(t)

	tr := f.treasuryState()
	addr, bump, err := f.deriver.Treasury()
	require.NoError(t, err)
	_, vaultBump, err := f.deriver.TreasuryVault()
	require.NoError(t, err)

	assert.Equal(t, addr, tr.Address)
	assert.Equal(t, bump, tr.Bump)
	assert.Equal(t, vaultBump, tr.VaultBump)
	assert.Equal(t, f.authority, tr.Authority)
	assert.Equal(t, domain.DefaultTVLCap, tr.TVLCap)
	assert.False(t, tr.IsPaused)
	assert.Zero(t, tr.TotalTVL)
	assert.Zero(t, tr.TotalFeesCollected)
}

func TestTreasuryService_Initialize_Twice(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.treasury.Initialize(f.ctx, solana.NewWallet().PublicKey())
	assertCode(t, err, apperror.ErrAlreadyInitialized("Treasury"))
	assert.Equal(t, f.authority, f.treasuryState().Authority)
}

func TestTreasuryService_Withdraw(t *testing.T) {
	f := newLedgerFixture(t)
	owner := f.newUser(10, 10_000)
	_, err := f.deposit(owner, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(40), f.native(f.treasuryVault()))

	res, err := f.treasury.Withdraw(f.ctx, ports.TreasuryWithdrawRequest{Caller: f.authority, Amount: 30})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), res.Balance)
	assert.Equal(t, uint64(30), f.native(f.authority))
	// Collected fees are a running total and do not shrink on withdrawal.
	assert.Equal(t, uint64(40), f.treasuryState().TotalFeesCollected)

	_, err = f.treasury.Withdraw(f.ctx, ports.TreasuryWithdrawRequest{Caller: f.authority, Amount: 11})
	assertCode(t, err, apperror.ErrInsufficientFunds())
}

func TestTreasuryService_Withdraw_NotAuthority(t *testing.T) {
	f := newLedgerFixture(t)
	owner := f.newUser(10, 10_000)
	_, err := f.deposit(owner, 10_000)
	require.NoError(t, err)

	_, err = f.treasury.Withdraw(f.ctx, ports.TreasuryWithdrawRequest{Caller: owner, Amount: 10})
	assertCode(t, err, apperror.ErrUnauthorized())
	assert.Equal(t, uint64(40), f.native(f.treasuryVault()))
}

func TestTreasuryService_Withdraw_ZeroAmount(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.treasury.Withdraw(f.ctx, ports.TreasuryWithdrawRequest{Caller: f.authority})
	assertCode(t, err, apperror.ErrInvalidAmount())
}

func TestTreasuryService_Withdraw_Idempotent(t *testing.T) {
	f := newLedgerFixture(t)
	owner := f.newUser(10, 10_000)
	_, err := f.deposit(owner, 10_000)
	require.NoError(t, err)

	req := ports.TreasuryWithdrawRequest{Caller: f.authority, Amount: 20, ReferenceID: "sweep-1"}
	_, err = f.treasury.Withdraw(f.ctx, req)
	require.NoError(t, err)
	_, err = f.treasury.Withdraw(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, uint64(20), f.native(f.authority))
}

func TestTreasuryService_TogglePause(t *testing.T) {
	f := newLedgerFixture(t)

	tr, err := f.treasury.TogglePause(f.ctx, f.authority)
	require.NoError(t, err)
	assert.True(t, tr.IsPaused)

	tr, err = f.treasury.TogglePause(f.ctx, f.authority)
	require.NoError(t, err)
	assert.False(t, tr.IsPaused)

	_, err = f.treasury.TogglePause(f.ctx, solana.NewWallet().PublicKey())
	assertCode(t, err, apperror.ErrUnauthorized())
	assert.False(t, f.treasuryState().IsPaused)
}

func TestTreasuryService_UpdateTVLCap(t *testing.T) {
	f := newLedgerFixture(t)
	owner := f.newUser(10, 1000)
	_, err := f.deposit(owner, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(996), f.treasuryState().TotalTVL)

	_, err = f.treasury.UpdateTVLCap(f.ctx, f.authority, 995)
	assertCode(t, err, apperror.ErrInvalidAmount())
	assert.Equal(t, domain.DefaultTVLCap, f.treasuryState().TVLCap)

	tr, err := f.treasury.UpdateTVLCap(f.ctx, f.authority, 996)
	require.NoError(t, err)
	assert.Equal(t, uint64(996), tr.TVLCap)

	_, err = f.treasury.UpdateTVLCap(f.ctx, owner, 5000)
	assertCode(t, err, apperror.ErrUnauthorized())
}

func TestTreasuryService_CreditWallet(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := solana.NewWallet().PublicKey()

	res, err := f.treasury.CreditWallet(f.ctx, ports.WalletCreditRequest{Caller: f.authority, Address: wallet, Amount: 700})
	require.NoError(t, err)
	assert.Equal(t, uint64(700), res.Balance)
	require.Len(t, res.Entries, 1)
	assert.True(t, res.Entries[0].From.IsZero())
	assert.Equal(t, domain.NativeMint, res.Entries[0].Mint)

	_, err = f.treasury.CreditWallet(f.ctx, ports.WalletCreditRequest{Caller: wallet, Address: wallet, Amount: 700})
	assertCode(t, err, apperror.ErrUnauthorized())
	assert.Equal(t, uint64(700), f.native(wallet))
}
