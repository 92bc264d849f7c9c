package service

import (
	"math"
	"testing"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_Balanced(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.newUser(10, 1000)
	b := f.newUser(10, 2000)
	_, err := f.deposit(a, 1000)
	require.NoError(t, err)
	_, err = f.deposit(b, 2000)
	require.NoError(t, err)

	m := newRecordingMetrics()
	report, err := NewReconciler(f.store, f.deriver, m, newTestLogger()).Run(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Users)
	assert.Equal(t, uint64(996+1992), report.VaultTotal)
	assert.Equal(t, report.VaultTotal, report.TotalTVL)
	assert.Zero(t, report.TVLDrift)
	assert.Zero(t, report.Overcommitted)
	assert.Zero(t, m.drift["tvl"])
}

func TestReconciler_DetectsDrift(t *testing.T) {
	f := newLedgerFixture(t)
	owner := f.newUser(10, 2000)
	_, err := f.deposit(owner, 1000)
	require.NoError(t, err)
	// Auto-saved funds reach the vault without counting toward TVL.
	_, err = f.savings.ProcessTransfer(f.ctx, ports.AmountRequest{Owner: owner, Caller: owner, Amount: 1000})
	require.NoError(t, err)

	m := newRecordingMetrics()
	report, err := NewReconciler(f.store, f.deriver, m, newTestLogger()).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(100), report.TVLDrift)
	assert.Equal(t, float64(100), m.drift["tvl"])
}

func TestReconciler_SaturatesTotals(t *testing.T) {
	f := newLedgerFixture(t)
	a := f.newUser(10, 0)
	b := f.newUser(10, 0)
	f.fund(f.vault(a), domain.NativeMint, math.MaxUint64)
	f.fund(f.vault(b), domain.NativeMint, 5)

	report, err := NewReconciler(f.store, f.deriver, nil, newTestLogger()).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.True(t, report.Saturated)
	assert.Equal(t, uint64(math.MaxUint64), report.VaultTotal)
	assert.Equal(t, float64(math.MaxUint64), report.TVLDrift)
}

func TestReconciler_DetectsOvercommittedAllocations(t *testing.T) {
	f := newLedgerFixture(t)
	owner := f.newUser(10, 1004)
	createAllocation(t, f, owner, "a", 60)
	createAllocation(t, f, owner, "b", 60)
	_, err := f.allocations.Deposit(f.ctx, ports.AmountRequest{Owner: owner, Caller: owner, Amount: 1004})
	require.NoError(t, err)

	m := newRecordingMetrics()
	report, err := NewReconciler(f.store, f.deriver, m, newTestLogger()).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overcommitted)
	assert.Equal(t, uint64(200), report.OvercommitTotal)
	assert.Equal(t, float64(200), m.drift["allocation_overcommit"])
}

func TestReconciler_Paginates(t *testing.T) {
	f := newLedgerFixture(t)
	for i := 0; i < reconcilePageSize+5; i++ {
		f.newUser(10, 0)
	}
	report, err := NewReconciler(f.store, f.deriver, nil, newTestLogger()).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcilePageSize+5, report.Users)
	assert.Zero(t, report.VaultTotal)
}
