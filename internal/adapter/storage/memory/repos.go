package memory

import (
	"context"
	"sort"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/gagliardetto/solana-go"
)

// --- User ledgers ---

type userRepo struct{ t *tx }

func (r userRepo) lookup(addr solana.PublicKey) (domain.UserLedger, bool) {
	if u, ok := r.t.users[addr]; ok {
		return u, true
	}
	u, ok := r.t.store.users[addr]
	return u, ok
}

func (r userRepo) Create(_ context.Context, u *domain.UserLedger) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(u.Address); ok {
		return ErrDuplicate
	}
	r.t.users[u.Address] = *u
	return nil
}

func (r userRepo) Get(_ context.Context, addr solana.PublicKey) (*domain.UserLedger, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	u, ok := r.lookup(addr)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) GetForUpdate(ctx context.Context, addr solana.PublicKey) (*domain.UserLedger, error) {
	return r.Get(ctx, addr)
}

func (r userRepo) Update(_ context.Context, u *domain.UserLedger) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(u.Address); !ok {
		return ErrNotFound
	}
	r.t.users[u.Address] = *u
	return nil
}

func (r userRepo) merged() []domain.UserLedger {
	out := make([]domain.UserLedger, 0, len(r.t.store.users)+len(r.t.users))
	for k, v := range r.t.store.users {
		if staged, ok := r.t.users[k]; ok {
			v = staged
		}
		out = append(out, v)
	}
	for k, v := range r.t.users {
		if _, ok := r.t.store.users[k]; !ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Address.String() < out[j].Address.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r userRepo) List(_ context.Context, offset, limit int) ([]domain.UserLedger, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	all := r.merged()
	if offset >= len(all) {
		return []domain.UserLedger{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r userRepo) Count(_ context.Context) (int64, int64, error) {
	if err := r.t.check(); err != nil {
		return 0, 0, err
	}
	var total, active int64
	for _, u := range r.merged() {
		total++
		if u.IsActive {
			active++
		}
	}
	return total, active, nil
}

// --- Treasury ---

type treasuryRepo struct{ t *tx }

func (r treasuryRepo) lookup(addr solana.PublicKey) (domain.TreasuryLedger, bool) {
	if v, ok := r.t.treasuries[addr]; ok {
		return v, true
	}
	v, ok := r.t.store.treasuries[addr]
	return v, ok
}

func (r treasuryRepo) Create(_ context.Context, v *domain.TreasuryLedger) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(v.Address); ok {
		return ErrDuplicate
	}
	r.t.treasuries[v.Address] = *v
	return nil
}

func (r treasuryRepo) Get(_ context.Context, addr solana.PublicKey) (*domain.TreasuryLedger, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	v, ok := r.lookup(addr)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r treasuryRepo) GetForUpdate(ctx context.Context, addr solana.PublicKey) (*domain.TreasuryLedger, error) {
	return r.Get(ctx, addr)
}

func (r treasuryRepo) Update(_ context.Context, v *domain.TreasuryLedger) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(v.Address); !ok {
		return ErrNotFound
	}
	r.t.treasuries[v.Address] = *v
	return nil
}

// --- Allocation ledgers ---

type allocationRepo struct{ t *tx }

func (r allocationRepo) lookup(addr solana.PublicKey) (*domain.AllocationLedger, bool) {
	if v, ok := r.t.allocations[addr]; ok {
		return v, true
	}
	v, ok := r.t.store.allocations[addr]
	return v, ok
}

func (r allocationRepo) Create(_ context.Context, v *domain.AllocationLedger) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(v.Address); ok {
		return ErrDuplicate
	}
	r.t.allocations[v.Address] = v.Clone()
	return nil
}

func (r allocationRepo) Get(_ context.Context, addr solana.PublicKey) (*domain.AllocationLedger, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	v, ok := r.lookup(addr)
	if !ok {
		return nil, nil
	}
	return v.Clone(), nil
}

func (r allocationRepo) GetForUpdate(ctx context.Context, addr solana.PublicKey) (*domain.AllocationLedger, error) {
	return r.Get(ctx, addr)
}

func (r allocationRepo) Update(_ context.Context, v *domain.AllocationLedger) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(v.Address); !ok {
		return ErrNotFound
	}
	r.t.allocations[v.Address] = v.Clone()
	return nil
}

// --- Token vaults ---

type tokenVaultRepo struct{ t *tx }

func (r tokenVaultRepo) lookup(addr solana.PublicKey) (domain.TokenVault, bool) {
	if v, ok := r.t.tokenVaults[addr]; ok {
		return v, true
	}
	v, ok := r.t.store.tokenVaults[addr]
	return v, ok
}

func (r tokenVaultRepo) Create(_ context.Context, v *domain.TokenVault) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(v.Address); ok {
		return ErrDuplicate
	}
	r.t.tokenVaults[v.Address] = *v
	return nil
}

func (r tokenVaultRepo) Get(_ context.Context, addr solana.PublicKey) (*domain.TokenVault, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	v, ok := r.lookup(addr)
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r tokenVaultRepo) GetForUpdate(ctx context.Context, addr solana.PublicKey) (*domain.TokenVault, error) {
	return r.Get(ctx, addr)
}

func (r tokenVaultRepo) Update(_ context.Context, v *domain.TokenVault) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.lookup(v.Address); !ok {
		return ErrNotFound
	}
	r.t.tokenVaults[v.Address] = *v
	return nil
}

// --- Swap configs ---

type swapRepo struct{ t *tx }

func (r swapRepo) Get(_ context.Context, addr solana.PublicKey) (*domain.SwapConfig, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	if v, ok := r.t.swaps[addr]; ok {
		return &v, nil
	}
	if v, ok := r.t.store.swaps[addr]; ok {
		return &v, nil
	}
	return nil, nil
}

func (r swapRepo) Upsert(_ context.Context, v *domain.SwapConfig) error {
	if err := r.t.check(); err != nil {
		return err
	}
	r.t.swaps[v.Address] = *v
	return nil
}

// --- Balance book ---

type balanceRepo struct{ t *tx }

func (r balanceRepo) Get(_ context.Context, key domain.BalanceKey) (uint64, error) {
	if err := r.t.check(); err != nil {
		return 0, err
	}
	if v, ok := r.t.balances[key]; ok {
		return v, nil
	}
	return r.t.store.balances[key], nil
}

func (r balanceRepo) GetForUpdate(ctx context.Context, key domain.BalanceKey) (uint64, error) {
	return r.Get(ctx, key)
}

func (r balanceRepo) Set(_ context.Context, key domain.BalanceKey, amount uint64) error {
	if err := r.t.check(); err != nil {
		return err
	}
	r.t.balances[key] = amount
	return nil
}

// --- Journal ---

type journalRepo struct{ t *tx }

func (r journalRepo) Append(_ context.Context, e *domain.JournalEntry) error {
	if err := r.t.check(); err != nil {
		return err
	}
	r.t.journal = append(r.t.journal, *e)
	return nil
}

func (r journalRepo) ListByOwner(_ context.Context, params ports.JournalListParams) ([]domain.JournalEntry, int64, error) {
	if err := r.t.check(); err != nil {
		return nil, 0, err
	}
	var result []domain.JournalEntry
	all := append(append([]domain.JournalEntry(nil), r.t.store.journal...), r.t.journal...)
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if !e.Owner.Equals(params.Owner) {
			continue
		}
		if params.Operation != nil && e.Operation != *params.Operation {
			continue
		}
		result = append(result, e)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(result) {
		return []domain.JournalEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- Idempotency ---

type idempotencyRepo struct{ t *tx }

func (r idempotencyRepo) Create(_ context.Context, log *domain.IdempotencyLog) error {
	if err := r.t.check(); err != nil {
		return err
	}
	if _, ok := r.t.store.idempotency[log.Key]; ok {
		return ErrDuplicate
	}
	if _, ok := r.t.idempotency[log.Key]; ok {
		return ErrDuplicate
	}
	r.t.idempotency[log.Key] = *log
	return nil
}

func (r idempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	if err := r.t.check(); err != nil {
		return nil, err
	}
	if v, ok := r.t.idempotency[key]; ok {
		return &v, nil
	}
	if v, ok := r.t.store.idempotency[key]; ok {
		return &v, nil
	}
	return nil, nil
}
