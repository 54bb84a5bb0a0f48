package scheduler

import (
	"fmt"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

// Pause sets the unified pause bit (spec §9 design note b). A task that is
// mid-run finishes that run; the status change lands at the end of
// executeOne (see loop.go) and the task will not be re-selected until
// Resume is called.
func (s *Scheduler) Pause(taskID string) (dispatcher.TaskInfo, error) {
	return s.store.Update(taskID, func(t *dispatcher.TaskInfo) error {
		if t.Status == dispatcher.StatusCompleted {
			return fmt.Errorf("%w: task %s has already completed", dispatcher.ErrValidation, taskID)
		}
		t.Status = dispatcher.StatusPaused
		return nil
	})
}

// Resume clears the pause bit and recomputes next_execution_time from the
// current instant, so a long pause doesn't cause a burst of catch-up runs
// (spec §4.9).
func (s *Scheduler) Resume(taskID string) (dispatcher.TaskInfo, error) {
	task, err := s.store.Update(taskID, func(t *dispatcher.TaskInfo) error {
		if t.Status != dispatcher.StatusPaused {
			return fmt.Errorf("%w: task %s is not paused", dispatcher.ErrValidation, taskID)
		}
		next := dispatcher.ComputeNextExecution(s.clk.Now(), t.LastExecutionTime, t.IntervalSeconds, t.ValidTimeRange, t.TaskEndTime)
		t.NextExecutionTime = next
		if next == nil {
			t.Status = dispatcher.StatusCompleted
		} else {
			t.Status = dispatcher.StatusPending
		}
		return nil
	})
	if err != nil {
		return dispatcher.TaskInfo{}, err
	}
	s.wake()
	return task, nil
}

// removeDrainWait bounds how long Remove waits for an in-flight execution to
// notice the pause bit and release the execution mutex, best-effort (spec
// §4.9's Remove: "if running, pause and wait briefly").
const removeDrainWait = 2 * time.Second

// Remove purges taskID from the registry, the account index, its log
// buffer, and its TaskContext document, and persists the result (spec §3,
// §4.9). A currently-running task is paused first and given a brief,
// best-effort window to finish its in-flight RunOnce before the record is
// deleted out from under it — removal still proceeds even if the run hasn't
// wound down by the deadline.
func (s *Scheduler) Remove(taskID string) error {
	if id, ok := s.RunningTask(); ok && id == taskID {
		if _, err := s.Pause(taskID); err != nil {
			s.logger.Warn("scheduler: pause before remove failed for task %s: %v", taskID, err)
		}
		deadline := time.Now().Add(removeDrainWait)
		for time.Now().Before(deadline) {
			if id, ok := s.RunningTask(); !ok || id != taskID {
				break
			}
			time.Sleep(25 * time.Millisecond)
		}
	}

	if err := s.store.Remove(taskID); err != nil {
		return err
	}

	if s.runDeps.Logs != nil {
		if err := s.runDeps.Logs.RemoveTaskLogs(taskID); err != nil {
			s.logger.Warn("scheduler: purge logs for task %s: %v", taskID, err)
		}
	}
	if s.runDeps.Context != nil {
		if err := s.runDeps.Context.Purge(taskID); err != nil {
			s.logger.Warn("scheduler: purge context for task %s: %v", taskID, err)
		}
	}
	return nil
}
