package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Runner executes one check-and-download cycle.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler drives the cycle controller on a fixed interval and exposes
// a debounced on-demand trigger. A single run lock guarantees at most
// one cycle executes at a time: the periodic loop acquires it blocking,
// manual triggers only try it.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	settle   time.Duration
	log      *slog.Logger

	runMu sync.Mutex

	manualMu      sync.Mutex
	manualPending bool

	wg sync.WaitGroup
}

// NewScheduler creates a Scheduler. settle is how long a manual trigger
// stays debounced after it has been dispatched.
func NewScheduler(runner Runner, interval, settle time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		settle:   settle,
		log:      logger,
	}
}

// Start runs an immediate first cycle and then one per interval until
// the context is canceled. It returns after any in-flight manual
// trigger has drained.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("scheduler started", "interval", s.interval)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// TriggerNow requests an out-of-band cycle. It returns false when the
// request was dropped, either because a previous manual trigger is
// still settling or because a cycle is already running.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	s.manualMu.Lock()
	if s.manualPending {
		s.manualMu.Unlock()
		s.log.Debug("manual trigger debounced")
		return false
	}
	s.manualPending = true
	s.manualMu.Unlock()

	defer s.clearPendingAfter(s.settle)

	if !s.runMu.TryLock() {
		s.log.Info("a check is already running, manual trigger ignored")
		return false
	}

	s.log.Info("manual check triggered")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		s.logCycleError(s.runner.Run(ctx))
	}()
	return true
}

func (s *Scheduler) runCycle(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	s.logCycleError(s.runner.Run(ctx))
	s.log.Info("sleeping until next check", "interval", s.interval)
}

func (s *Scheduler) logCycleError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	// Cycle-level failures are expected operating conditions; the next
	// interval simply tries again.
	s.log.Warn("cycle aborted", "error", err)
}

func (s *Scheduler) clearPendingAfter(d time.Duration) {
	time.AfterFunc(d, func() {
		s.manualMu.Lock()
		s.manualPending = false
		s.manualMu.Unlock()
	})
}
