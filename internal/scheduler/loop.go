package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

// loop is the main scheduling goroutine (spec §4.9). Grounded on the
// teacher's Scheduler.Start ticker loop, generalized from a single cron
// dispatch to a ready-set scan sorted by (next_execution_time,
// created_at), executed one task at a time under the global execution
// mutex.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)
	for {
		sleep := s.runReadyTasks(ctx)

		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-s.wakeCh:
			continue
		case <-time.After(sleep):
			continue
		}
	}
}

// runReadyTasks executes every currently-due task once, in order, and
// returns how long the loop should idle before scanning again.
func (s *Scheduler) runReadyTasks(ctx context.Context) time.Duration {
	if s.metrics != nil {
		s.metrics.IncTick()
	}
	ready := s.readySet()
	for _, t := range ready {
		select {
		case <-s.stopCh:
			return maxSleep
		case <-ctx.Done():
			return maxSleep
		default:
		}
		s.executeOne(ctx, t.TaskID, false)
	}
	return s.nextWakeInterval()
}

// readySet collects pending tasks whose next_execution_time has arrived,
// sorted by (next_execution_time asc, created_at asc) per spec §5's
// tie-break rule.
func (s *Scheduler) readySet() []dispatcher.TaskInfo {
	now := s.clk.Now()
	pending := s.store.AllPending()
	var ready []dispatcher.TaskInfo
	for _, t := range pending {
		if t.NextExecutionTime != nil && !t.NextExecutionTime.After(now) {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i].NextExecutionTime, ready[j].NextExecutionTime
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	return ready
}

// nextWakeInterval returns the time until the soonest pending task is due,
// capped at maxSleep so a newly-added task is never left waiting longer
// than that even if the loop just finished its scan.
func (s *Scheduler) nextWakeInterval() time.Duration {
	now := s.clk.Now()
	soonest := now.Add(maxSleep)
	for _, t := range s.store.AllPending() {
		if t.NextExecutionTime != nil && t.NextExecutionTime.Before(soonest) {
			soonest = *t.NextExecutionTime
		}
	}
	if soonest.Before(now) {
		return 0
	}
	if d := soonest.Sub(now); d < maxSleep {
		return d
	}
	return maxSleep
}

// executeOne drives a single RunOnce call under the global execution
// mutex and applies the resulting state transition (spec §4.9's
// completion/error/reschedule table). skipWindowCheck is true only for
// execute_task_immediately.
func (s *Scheduler) executeOne(ctx context.Context, taskID string, skipWindowCheck bool) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.setRunning(&taskID)
	defer s.setRunning(nil)

	task, err := s.store.Get(taskID)
	if err != nil {
		return err
	}
	if task.Status == dispatcher.StatusPaused || task.Status == dispatcher.StatusCompleted {
		return nil
	}

	if _, err := s.store.Update(taskID, func(t *dispatcher.TaskInfo) error {
		t.Status = dispatcher.StatusRunning
		return nil
	}); err != nil {
		return err
	}

	run := s.newRun(taskID, s.runDeps)
	runStart := s.clk.Now()
	continueRun, runErr := run.RunOnce(ctx, skipWindowCheck)
	now := s.clk.Now()
	if s.metrics != nil {
		outcome := "success"
		if runErr != nil {
			outcome = "error"
		}
		s.metrics.ObserveRun(outcome, now.Sub(runStart))
	}

	_, updErr := s.store.Update(taskID, func(t *dispatcher.TaskInfo) error {
		if t.Status == dispatcher.StatusPaused {
			// A pause landed while the runner was executing: it wins, and
			// keeps the task's progress (LastExecutionTime) as of this run.
			t.LastExecutionTime = &now
			return nil
		}
		t.LastExecutionTime = &now

		if runErr != nil {
			t.Status = dispatcher.StatusError
			t.RetryCount++
			t.LastError = runErr.Error()
			t.NextExecutionTime = dispatcher.ComputeNextExecution(now, t.LastExecutionTime, t.IntervalSeconds, t.ValidTimeRange, t.TaskEndTime)
			if t.NextExecutionTime != nil {
				t.Status = dispatcher.StatusPending
			}
			return nil
		}

		t.RetryCount = 0
		t.LastError = ""
		if !continueRun {
			t.Status = dispatcher.StatusCompleted
			t.NextExecutionTime = nil
			return nil
		}
		t.NextExecutionTime = dispatcher.ComputeNextExecution(now, t.LastExecutionTime, t.IntervalSeconds, t.ValidTimeRange, t.TaskEndTime)
		if t.NextExecutionTime == nil {
			t.Status = dispatcher.StatusCompleted
		} else {
			t.Status = dispatcher.StatusPending
		}
		return nil
	})
	if updErr != nil {
		return updErr
	}
	return runErr
}
