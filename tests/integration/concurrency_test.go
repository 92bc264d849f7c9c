package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"auto-savings-vault/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentDeposits fires more deposits than the wallet can fund. Exactly
// the fundable number must succeed and balances must add up afterwards.
func TestConcurrentDeposits(t *testing.T) {
	app := newTestApp(t)

	const (
		workers = 50
		amount  = uint64(100_000_000)
		funded  = 30
	)
	user := app.bootstrap(t, funded*amount, 10)
	path := "/api/v1/users/" + user.PublicKey().String() + "/deposit"

	var ok, insufficient, other int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := app.signed(t, user, http.MethodPost, path, map[string]interface{}{
				"amount":       amount,
				"reference_id": fmt.Sprintf("conc-%d", i),
			})
			switch {
			case res.Status == http.StatusOK:
				atomic.AddInt64(&ok, 1)
			case res.ErrorCode == "LDG_003":
				atomic.AddInt64(&insufficient, 1)
			default:
				atomic.AddInt64(&other, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(funded), ok)
	assert.Equal(t, int64(workers-funded), insufficient)
	assert.Zero(t, other)

	token := app.login(t, user)
	view := app.get(t, token, "/api/v1/users/"+user.PublicKey().String())
	require.Equal(t, http.StatusOK, view.Status, view.ErrorCode)
	fee := amount * 40 / 10_000
	assert.Equal(t, funded*(amount-fee), num(t, view.Data, "vault_balance"))

	stats := app.get(t, "", "/api/v1/stats")
	require.Equal(t, http.StatusOK, stats.Status, stats.ErrorCode)
	assert.Equal(t, funded*fee, num(t, stats.Data, "total_fees_collected"))
	assert.Equal(t, funded*(amount-fee), num(t, stats.Data, "total_tvl"))
}

// TestConcurrentReplays sends the same reference from many goroutines. One
// deposit lands and every caller sees its result.
func TestConcurrentReplays(t *testing.T) {
	app := newTestApp(t)
	user := app.bootstrap(t, sol, 10)
	path := "/api/v1/users/" + user.PublicKey().String() + "/deposit"

	const workers = 20
	balances := make([]uint64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := app.signed(t, user, http.MethodPost, path, map[string]interface{}{
				"amount":       100_000_000,
				"reference_id": "same-ref",
			})
			if res.Status == http.StatusOK {
				balances[i] = uint64(res.Data["balance"].(float64))
			}
		}(i)
	}
	wg.Wait()

	for i, b := range balances {
		assert.Equal(t, uint64(99_600_000), b, "worker %d", i)
	}
}

// TestReconcileAfterConcurrentLoad checks the reconciler's totals once
// concurrent traffic settles.
func TestReconcileAfterConcurrentLoad(t *testing.T) {
	app := newTestApp(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		user := app.bootstrap(t, sol, 10+i)
		path := "/api/v1/users/" + user.PublicKey().String()
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.signed(t, user, http.MethodPost, path+"/deposit", map[string]interface{}{"amount": 300_000_000})
			app.signed(t, user, http.MethodPost, path+"/transfers", map[string]interface{}{"amount": 100_000_000})
			app.signed(t, user, http.MethodPost, path+"/withdraw", map[string]interface{}{"amount": 50_000_000})
		}()
	}
	wg.Wait()

	rec := service.NewReconciler(app.store, app.deriver, nil, zerolog.Nop())
	report, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Users)
	assert.Zero(t, report.Overcommitted)

	// TVL moves with deposit net and withdrawn principal only, so the vaults
	// lead it by the transfer shares (10..14% of 0.1) less the withdrawal fees.
	var shares uint64
	for i := 0; i < 5; i++ {
		shares += uint64(10+i) * 1_000_000
	}
	withdrawFees := uint64(5 * 200_000)
	assert.Equal(t, float64(shares-withdrawFees), report.TVLDrift)
	assert.Equal(t, report.TotalTVL+shares-withdrawFees, report.VaultTotal)
}
