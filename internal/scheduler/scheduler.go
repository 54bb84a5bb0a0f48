// Package scheduler implements the Scheduler core (C9): the single-writer,
// serialised-execution loop that selects, drives, and persists task
// executions (spec §4.9). Grounded on the teacher's internal/app/scheduler
// (Scheduler, cron-driven loop, mutex-guarded state, jobStore persistence),
// generalized from cron-expression triggers to the window+interval cadence
// model spec §4.9 defines.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/license"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
	"github.com/psdyuan2/AiMediaOps/internal/runner"
)

// maxSleep bounds the loop's idle wait (spec §4.9: "never more than 60 s").
const maxSleep = 60 * time.Second

// MetricsSink receives scheduler telemetry (C13). Declared here rather than
// depending on internal/telemetry directly, so the scheduler core stays
// usable without the metrics package wired in; *telemetry.Metrics satisfies
// it.
type MetricsSink interface {
	IncTick()
	ObserveRun(outcome string, d time.Duration)
}

// Scheduler owns the single execution mutex, the ready-task selection loop,
// and the public operations the control-plane API (C10) drives.
type Scheduler struct {
	store   *dispatcher.Store
	gate    *license.Gate
	clk     clock.Clock
	logger  logging.Logger
	newRun  runner.Factory
	runDeps runner.Deps

	// execMu is the system-wide execution mutex (spec §5 glossary): held
	// for the entirety of every RunOnce call, whether loop-triggered or
	// immediate-execute. Exposed as an explicit object per the teacher's
	// "never a hidden singleton" design note, even though it's a plain
	// sync.Mutex under the hood.
	execMu sync.Mutex

	mu      sync.Mutex // guards running + wake bookkeeping only
	running *string    // task_id currently holding execMu, if any

	stopCh    chan struct{}
	doneCh    chan struct{}
	wakeCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	metrics MetricsSink
}

// SetMetrics attaches a telemetry sink. Optional — a nil sink (the default)
// means run_once outcomes simply aren't counted.
func (s *Scheduler) SetMetrics(m MetricsSink) {
	s.metrics = m
}

// New constructs a Scheduler. runDeps is cloned per task by newRun
// (typically runner.NewXHSRunner) to build the Runner that executes it;
// the Scheduler never constructs a Runner itself (spec §9 design note:
// cyclic ownership avoided by passing ids, not pointers).
func New(store *dispatcher.Store, gate *license.Gate, clk clock.Clock, newRun runner.Factory, runDeps runner.Deps, logger logging.Logger) *Scheduler {
	if clk == nil {
		clk = clock.System{}
	}
	return &Scheduler{
		store:   store,
		gate:    gate,
		clk:     clk,
		logger:  logging.OrNop(logger),
		newRun:  newRun,
		runDeps: runDeps,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		wakeCh:  make(chan struct{}, 1),
	}
}

// Start launches the main loop goroutine. Safe to call once; subsequent
// calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.loop(ctx)
	})
}

// Stop signals the loop to exit and waits up to 30s for it to drain
// in-flight work, per spec §5's cancellation policy.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	select {
	case <-s.doneCh:
	case <-time.After(30 * time.Second):
		s.logger.Warn("scheduler: stop timed out waiting for loop to drain")
	}
}

// RunningTask returns the task_id currently executing, if any.
func (s *Scheduler) RunningTask() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return "", false
	}
	return *s.running, true
}

func (s *Scheduler) setRunning(id *string) {
	s.mu.Lock()
	s.running = id
	s.mu.Unlock()
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}
