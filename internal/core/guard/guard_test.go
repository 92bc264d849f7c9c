package guard

import (
	"math"
	"testing"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestNotPaused(t *testing.T) {
	paused := &domain.TreasuryLedger{IsPaused: true}
	running := &domain.TreasuryLedger{}

	on := New(Features{Pause: true})
	assert.ErrorIs(t, on.NotPaused(paused), apperror.ErrProtocolPaused())
	assert.NoError(t, on.NotPaused(running))

	off := New(Features{})
	assert.NoError(t, off.NotPaused(paused))
}

func TestWithinTVLCap(t *testing.T) {
	e := New(Features{TVLCap: true})

	tests := []struct {
		name    string
		tvl     uint64
		limit   uint64
		amount  uint64
		wantErr error
	}{
		{"well below", 0, domain.DefaultTVLCap, 1000, nil},
		{"exactly at cap", domain.DefaultTVLCap - 1, domain.DefaultTVLCap, 1, nil},
		{"one above cap", domain.DefaultTVLCap - 1, domain.DefaultTVLCap, 2, apperror.ErrTVLCapExceeded()},
		{"overflow", math.MaxUint64, math.MaxUint64, 1, apperror.ErrOverflow()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.WithinTVLCap(&domain.TreasuryLedger{TotalTVL: tt.tvl, TVLCap: tt.limit}, tt.amount)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("feature off", func(t *testing.T) {
		off := New(Features{})
		assert.NoError(t, off.WithinTVLCap(&domain.TreasuryLedger{TotalTVL: 10, TVLCap: 5}, 100))
	})
}

func TestActive(t *testing.T) {
	e := New(Features{})
	assert.NoError(t, e.Active(&domain.UserLedger{IsActive: true}))
	assert.ErrorIs(t, e.Active(&domain.UserLedger{}), apperror.ErrAccountNotActive())
}

func TestAuthorityAndOwner(t *testing.T) {
	e := New(Features{})
	auth := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	tr := &domain.TreasuryLedger{Authority: auth}

	assert.NoError(t, e.Authority(tr, auth))
	assert.ErrorIs(t, e.Authority(tr, other), apperror.ErrUnauthorized())
	assert.NoError(t, e.Owner(auth, auth))
	assert.ErrorIs(t, e.Owner(auth, other), apperror.ErrUnauthorized())
}

func TestSavingsRateAndAmount(t *testing.T) {
	e := New(Features{})
	assert.NoError(t, e.SavingsRate(1))
	assert.NoError(t, e.SavingsRate(90))
	assert.ErrorIs(t, e.SavingsRate(0), apperror.ErrInvalidSavingsRate())
	assert.ErrorIs(t, e.SavingsRate(91), apperror.ErrInvalidSavingsRate())

	assert.NoError(t, e.PositiveAmount(1))
	assert.ErrorIs(t, e.PositiveAmount(0), apperror.ErrInvalidAmount())
}
