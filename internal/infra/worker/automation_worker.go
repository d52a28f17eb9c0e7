package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

var ErrAlreadyRunning = errors.New("automation worker already running")

type PassRunner interface {
	RunPass(ctx context.Context) (*usecase.SweepReport, error)
}

// AutomationWorker runs an automation pass right away and then on every tick.
type AutomationWorker struct {
	runner       PassRunner
	tickInterval time.Duration
	log          zerolog.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	lastReport *usecase.SweepReport
}

func NewAutomationWorker(runner PassRunner, interval time.Duration) *AutomationWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AutomationWorker{
		runner:       runner,
		tickInterval: interval,
		log:          logger.Component("automation_worker"),
	}
}

// Start launches the loop in the background. It stops when ctx is cancelled
// or Stop is called.
func (w *AutomationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass to return.
func (w *AutomationWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *AutomationWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *AutomationWorker) LastReport() *usecase.SweepReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReport
}

func (w *AutomationWorker) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		if w.done == done {
			w.cancel()
			w.cancel, w.done = nil, nil
		}
		w.mu.Unlock()
		close(done)
	}()

	w.log.Info().Dur("interval", w.tickInterval).Msg("automation worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("automation worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *AutomationWorker) tick(ctx context.Context) {
	report, err := w.runner.RunPass(ctx)
	if errors.Is(err, usecase.ErrSweepInProgress) {
		w.log.Info().Msg("previous pass still running, tick skipped")
		return
	}
	if err != nil {
		w.log.Error().Err(err).Msg("automation pass failed")
		return
	}

	w.mu.Lock()
	w.lastReport = report
	w.mu.Unlock()
}
