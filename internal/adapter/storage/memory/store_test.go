package memory

import (
	"context"
	"testing"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CommitApplies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addr := solana.NewWallet().PublicKey()
	key := domain.NativeBalanceKey(addr)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Users().Create(ctx, &domain.UserLedger{Address: addr, SavingsRate: 10, IsActive: true}))
	require.NoError(t, tx.Balances().Set(ctx, key, 500))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck

	u, err := tx2.Users().Get(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint8(10), u.SavingsRate)

	bal, err := tx2.Balances().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), bal)
}

func TestStore_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addr := solana.NewWallet().PublicKey()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Users().Create(ctx, &domain.UserLedger{Address: addr}))
	require.NoError(t, tx.Journal().Append(ctx, &domain.JournalEntry{ID: uuid.New(), Owner: addr}))
	require.NoError(t, tx.Rollback(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck

	u, err := tx2.Users().Get(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, u)

	entries, total, err := tx2.Journal().ListByOwner(ctx, ports.JournalListParams{Owner: addr, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)
}

func TestStore_RollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)

	_, err = tx.Users().Get(ctx, solana.PublicKey{})
	assert.ErrorIs(t, err, ErrTxDone)
}

func TestStore_BeginWaitsForWriter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Begin(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback(ctx))
	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addr := solana.NewWallet().PublicKey()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	require.NoError(t, tx.Treasury().Create(ctx, &domain.TreasuryLedger{Address: addr}))
	assert.ErrorIs(t, tx.Treasury().Create(ctx, &domain.TreasuryLedger{Address: addr}), ErrDuplicate)
	assert.ErrorIs(t, tx.Users().Update(ctx, &domain.UserLedger{Address: addr}), ErrNotFound)
}

func TestStore_AllocationsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addr := solana.NewWallet().PublicKey()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	ledger := &domain.AllocationLedger{Address: addr, Allocations: []domain.Allocation{{Name: "rent", IsActive: true}}}
	require.NoError(t, tx.Allocations().Create(ctx, ledger))
	ledger.Allocations[0].TotalSaved = 100
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck
	got, err := tx2.Allocations().Get(ctx, addr)
	require.NoError(t, err)
	assert.Zero(t, got.Allocations[0].TotalSaved)
}

func TestStore_UserListAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Now()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, tx.Users().Create(ctx, &domain.UserLedger{
			Address:   solana.NewWallet().PublicKey(),
			IsActive:  i != 1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck

	total, active, err := tx2.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), active)

	page, err := tx2.Users().List(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.False(t, page[0].IsActive)
}

func TestJournal_ListByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	owner := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, tx.Journal().Append(ctx, &domain.JournalEntry{ID: uuid.New(), Owner: owner, Operation: domain.OperationDeposit, Amount: uint64(i)}))
	}
	require.NoError(t, tx.Journal().Append(ctx, &domain.JournalEntry{ID: uuid.New(), Owner: owner, Operation: domain.OperationWithdraw}))
	require.NoError(t, tx.Journal().Append(ctx, &domain.JournalEntry{ID: uuid.New(), Owner: other, Operation: domain.OperationDeposit}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx) //nolint:errcheck

	op := domain.OperationDeposit
	entries, total, err := tx2.Journal().ListByOwner(ctx, ports.JournalListParams{Owner: owner, Operation: &op, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(4), entries[0].Amount, "newest first")
}

func TestIdempotencyCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewIdempotencyCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNonceStore_CheckAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewNonceStore()

	ok, err := s.CheckAndSet(ctx, "signer", "n1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CheckAndSet(ctx, "signer", "n1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CheckAndSet(ctx, "other", "n1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuditRepo(t *testing.T) {
	s := NewStore()
	r := NewAuditRepo(s)
	require.NoError(t, r.Create(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionDeposit}))
	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionDeposit, entries[0].Action)
}
