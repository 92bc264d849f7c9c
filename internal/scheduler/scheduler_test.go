package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"auto-savings-vault/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) Run(_ context.Context) (*service.ReconcileReport, error) {
	c.calls.Add(1)
	return &service.ReconcileReport{}, c.err
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &countingReconciler{}, zerolog.Nop())

	require.NoError(t, s.RegisterAll("0 */5 * * * *"))
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestRegisterAll_InvalidSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &countingReconciler{}, zerolog.Nop())

	err := s.RegisterAll("every five minutes")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "register reconcile task")
}

func TestRunReconcileNow(t *testing.T) {
	rec := &countingReconciler{err: errors.New("boom")}
	s := NewScheduler(context.Background(), rec, zerolog.Nop())

	s.RunReconcileNow()
	s.RunReconcileNow()
	assert.Equal(t, int32(2), rec.calls.Load())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(context.Background(), &countingReconciler{}, zerolog.Nop())
	require.NoError(t, s.RegisterAll("@every 1h"))
	s.Start()
	s.Stop()
}
