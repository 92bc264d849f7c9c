// Package scheduler runs periodic ledger maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"auto-savings-vault/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// reconcileTimeout bounds a single reconciliation pass.
const reconcileTimeout = 2 * time.Minute

// Reconciler is the job the scheduler drives.
type Reconciler interface {
	Run(ctx context.Context) (*service.ReconcileReport, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Reconciler Reconciler
	Ctx        context.Context
	log        zerolog.Logger
}

// NewScheduler creates a new Scheduler. Specs use the six-field format with seconds.
func NewScheduler(ctx context.Context, rec Reconciler, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Reconciler: rec,
		Ctx:        ctx,
		log:        log,
	}
}

// RegisterAll registers the reconciliation task.
func (s *Scheduler) RegisterAll(reconcileCron string) error {
	if _, err := s.Cron.AddFunc(reconcileCron, s.reconcileTask); err != nil {
		return fmt.Errorf("register reconcile task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunReconcileNow executes the reconciliation task immediately.
func (s *Scheduler) RunReconcileNow() {
	s.reconcileTask()
}

func (s *Scheduler) reconcileTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, reconcileTimeout)
	defer cancel()

	if _, err := s.Reconciler.Run(ctx); err != nil {
		s.log.Error().Err(err).Msg("reconciliation failed")
	}
}
