package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"auto-savings-vault/internal/adapter/storage/memory"
	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/guard"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgramID = solana.MustPublicKeyFromBase58("8Ds6CcX7F8hEuUuoGyXQnk9CkPtC4Bb8JP3kJAnJpXPy")
	fixedNow      = time.Date(2024, 2, 16, 12, 0, 0, 0, time.UTC)
)

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

// ledgerFixture wires every ledger service over one in-memory store with an
// initialized treasury.
type ledgerFixture struct {
	t           *testing.T
	ctx         context.Context
	store       *memory.Store
	deriver     *pda.Deriver
	savings     *SavingsServiceImpl
	treasury    *TreasuryServiceImpl
	allocations *AllocationServiceImpl
	tokens      *TokenVaultServiceImpl
	reports     ports.ReportingService
	authority   solana.PublicKey
}

type fixtureOption func(*LedgerDeps)

func withCache(c ports.IdempotencyCache) fixtureOption {
	return func(d *LedgerDeps) { d.Cache = c }
}

func withFeatures(f guard.Features) fixtureOption {
	return func(d *LedgerDeps) { d.Guard = guard.New(f) }
}

func withTVLCap(limit uint64) fixtureOption {
	return func(d *LedgerDeps) { d.TVLCap = limit }
}

func withMetrics(m ports.LedgerMetrics) fixtureOption {
	return func(d *LedgerDeps) { d.Metrics = m }
}

func newLedgerFixture(t *testing.T, opts ...fixtureOption) *ledgerFixture {
	t.Helper()
	store := memory.NewStore()
	deriver := pda.NewDeriver(testProgramID)
	deps := LedgerDeps{
		Transactor: store,
		Deriver:    deriver,
		Guard:      guard.New(guard.Features{Pause: true, TVLCap: true}),
		Log:        newTestLogger(),
		Now:        func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(&deps)
	}

	f := &ledgerFixture{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		deriver:     deriver,
		savings:     NewSavingsService(deps),
		treasury:    NewTreasuryService(deps),
		allocations: NewAllocationService(deps),
		tokens:      NewTokenVaultService(deps),
		reports:     NewReportingService(store, deriver),
		authority:   solana.NewWallet().PublicKey(),
	}
	_, err := f.treasury.Initialize(f.ctx, f.authority)
	require.NoError(t, err)
	return f
}

// newUser initializes a ledger for a fresh wallet and funds the wallet.
func (f *ledgerFixture) newUser(rate uint8, funded uint64) solana.PublicKey {
	f.t.Helper()
	owner := solana.NewWallet().PublicKey()
	_, err := f.savings.InitializeUser(f.ctx, ports.InitializeUserRequest{Owner: owner, SavingsRate: rate})
	require.NoError(f.t, err)
	if funded > 0 {
		f.fund(owner, domain.NativeMint, funded)
	}
	return owner
}

func (f *ledgerFixture) fund(addr, mint solana.PublicKey, amount uint64) {
	f.t.Helper()
	_, err := f.treasury.CreditWallet(f.ctx, ports.WalletCreditRequest{
		Caller:  f.authority,
		Address: addr,
		Mint:    mint,
		Amount:  amount,
	})
	require.NoError(f.t, err)
}

func (f *ledgerFixture) balanceOf(addr, mint solana.PublicKey) uint64 {
	f.t.Helper()
	bal, err := f.reports.GetBalance(f.ctx, addr, mint)
	require.NoError(f.t, err)
	return bal
}

func (f *ledgerFixture) native(addr solana.PublicKey) uint64 {
	return f.balanceOf(addr, domain.NativeMint)
}

func (f *ledgerFixture) vault(owner solana.PublicKey) solana.PublicKey {
	addr, _, err := f.deriver.Vault(owner)
	require.NoError(f.t, err)
	return addr
}

func (f *ledgerFixture) treasuryVault() solana.PublicKey {
	addr, _, err := f.deriver.TreasuryVault()
	require.NoError(f.t, err)
	return addr
}

func (f *ledgerFixture) user(owner solana.PublicKey) domain.UserLedger {
	f.t.Helper()
	v, err := f.reports.GetUser(f.ctx, owner)
	require.NoError(f.t, err)
	return v.Ledger
}

func (f *ledgerFixture) treasuryState() domain.TreasuryLedger {
	f.t.Helper()
	tr, err := f.reports.GetTreasury(f.ctx)
	require.NoError(f.t, err)
	return *tr
}

func (f *ledgerFixture) deposit(owner solana.PublicKey, amount uint64) (*ports.MovementResult, error) {
	return f.savings.Deposit(f.ctx, ports.AmountRequest{Owner: owner, Caller: owner, Amount: amount})
}

func (f *ledgerFixture) withdraw(owner solana.PublicKey, amount uint64) (*ports.MovementResult, error) {
	return f.savings.Withdraw(f.ctx, ports.AmountRequest{Owner: owner, Caller: owner, Amount: amount})
}

func assertCode(t *testing.T, err error, want *apperror.AppError) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "expected %s, got %v", want.Code, err)
}

// recordingMetrics captures LedgerMetrics calls.
type recordingMetrics struct {
	ops   map[domain.Operation][]error
	fees  uint64
	tvl   uint64
	drift map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[domain.Operation][]error{}, drift: map[string]float64{}}
}

func (m *recordingMetrics) ObserveOperation(op domain.Operation, err error) {
	m.ops[op] = append(m.ops[op], err)
}
func (m *recordingMetrics) AddFees(amount uint64)                { m.fees += amount }
func (m *recordingMetrics) SetTVL(tvl uint64)                    { m.tvl = tvl }
func (m *recordingMetrics) SetReconcileDrift(k string, v float64) { m.drift[k] = v }
