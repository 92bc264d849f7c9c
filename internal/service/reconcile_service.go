package service

import (
	"context"
	"fmt"
	"math"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/core/safemath"
	"auto-savings-vault/pkg/apperror"

	"github.com/rs/zerolog"
)

const reconcilePageSize = 100

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Users           int     `json:"users"`
	VaultTotal      uint64  `json:"vault_total"`
	TotalTVL        uint64  `json:"total_tvl"`
	TVLDrift        float64 `json:"tvl_drift"`
	Overcommitted   int     `json:"overcommitted_users"`
	OvercommitTotal uint64  `json:"overcommit_total"`
	// Saturated is set when a total hit math.MaxUint64 and was clamped there.
	Saturated bool `json:"saturated"`
}

// add accumulates v into *total, clamping at math.MaxUint64.
func (r *ReconcileReport) add(total *uint64, v uint64) {
	sum, err := safemath.Add(*total, v)
	if err != nil {
		*total = math.MaxUint64
		r.Saturated = true
		return
	}
	*total = sum
}

// Reconciler compares ledger counters with the balance book. It only reports:
// TVL is tracked net of deposit fees and allocations never reserve funds, so
// some drift is expected and nothing is corrected automatically.
type Reconciler struct {
	transactor ports.Transactor
	deriver    *pda.Deriver
	metrics    ports.LedgerMetrics
	log        zerolog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(transactor ports.Transactor, deriver *pda.Deriver, metrics ports.LedgerMetrics, log zerolog.Logger) *Reconciler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Reconciler{transactor: transactor, deriver: deriver, metrics: metrics, log: log}
}

// Run performs one pass over every user ledger.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	tx, err := begin(ctx, r.transactor)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	report := &ReconcileReport{}

	treasuryAddr, _, err := r.deriver.Treasury()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	treasury, err := tx.Treasury().Get(ctx, treasuryAddr)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get treasury: %w", err))
	}
	if treasury != nil {
		report.TotalTVL = treasury.TotalTVL
	}

	for offset := 0; ; offset += reconcilePageSize {
		users, err := tx.Users().List(ctx, offset, reconcilePageSize)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("list users: %w", err))
		}
		for i := range users {
			if err := r.checkUser(ctx, tx, &users[i], report); err != nil {
				return nil, err
			}
		}
		if len(users) < reconcilePageSize {
			break
		}
	}

	report.TVLDrift = float64(report.VaultTotal) - float64(report.TotalTVL)
	r.metrics.SetReconcileDrift("tvl", report.TVLDrift)
	r.metrics.SetReconcileDrift("allocation_overcommit", float64(report.OvercommitTotal))

	ev := r.log.Info()
	if report.Overcommitted > 0 || report.Saturated {
		ev = r.log.Warn()
	}
	ev.Int("users", report.Users).
		Uint64("vault_total", report.VaultTotal).
		Uint64("total_tvl", report.TotalTVL).
		Float64("tvl_drift", report.TVLDrift).
		Int("overcommitted_users", report.Overcommitted).
		Uint64("overcommit_total", report.OvercommitTotal).
		Bool("saturated", report.Saturated).
		Msg("reconciliation completed")

	return report, nil
}

func (r *Reconciler) checkUser(ctx context.Context, tx ports.LedgerTx, u *domain.UserLedger, report *ReconcileReport) error {
	report.Users++

	vault, err := r.deriver.Reproduce(pda.NamespaceVault, &u.Owner, u.VaultBump)
	if err != nil {
		return apperror.InternalError(err)
	}
	bal, err := tx.Balances().Get(ctx, domain.NativeBalanceKey(vault))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get vault balance: %w", err))
	}
	report.add(&report.VaultTotal, bal)

	allocAddr, _, err := r.deriver.AllocationLedger(u.Owner)
	if err != nil {
		return apperror.InternalError(err)
	}
	ledger, err := tx.Allocations().Get(ctx, allocAddr)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get allocations: %w", err))
	}
	if ledger == nil {
		return nil
	}

	var tracked uint64
	for _, a := range ledger.Allocations {
		if a.IsActive {
			report.add(&tracked, a.Available())
		}
	}
	if tracked > bal {
		report.Overcommitted++
		report.add(&report.OvercommitTotal, tracked-bal)
		r.log.Warn().
			Str("owner", u.Owner.String()).
			Uint64("tracked", tracked).
			Uint64("vault_balance", bal).
			Msg("allocations exceed pooled vault balance")
	}
	return nil
}
