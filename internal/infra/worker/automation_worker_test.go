package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunPass(ctx context.Context) (*usecase.SweepReport, error) {
	n := r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &usecase.SweepReport{Candidates: int(n)}, nil
}

func TestAutomationWorkerRunsImmediatelyAndOnTick(t *testing.T) {
	runner := &countingRunner{}
	w := NewAutomationWorker(runner, 10*time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.False(t, w.Running())

	report := w.LastReport()
	require.NotNil(t, report)
	assert.GreaterOrEqual(t, report.Candidates, 3)

	stoppedAt := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stoppedAt, runner.calls.Load())
}

func TestAutomationWorkerStartTwice(t *testing.T) {
	w := NewAutomationWorker(&countingRunner{}, time.Hour)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyRunning)
}

func TestAutomationWorkerSkipsBusyPass(t *testing.T) {
	runner := &countingRunner{err: usecase.ErrSweepInProgress}
	w := NewAutomationWorker(runner, time.Hour)

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	w.Stop()

	assert.Nil(t, w.LastReport())
}

func TestAutomationWorkerStopsWithContext(t *testing.T) {
	runner := &countingRunner{err: errors.New("boom")}
	w := NewAutomationWorker(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return !w.Running() }, time.Second, 5*time.Millisecond)
	w.Stop()
}
