package scheduler

import (
	"context"
	"fmt"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

// ExecuteTaskImmediately runs taskID right now, bypassing its valid-time
// window, without disturbing its normal cadence beyond recording the run
// (spec §4.9's execute_task_immediately). It is a licensed feature: the
// free tier may only run tasks on their normal schedule.
func (s *Scheduler) ExecuteTaskImmediately(ctx context.Context, taskID string) (dispatcher.TaskInfo, error) {
	if !s.gate.CanExecuteImmediately() {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: immediate execution requires an active license", dispatcher.ErrLicenseNotActivated)
	}

	task, err := s.store.Get(taskID)
	if err != nil {
		return dispatcher.TaskInfo{}, err
	}
	if task.Status == dispatcher.StatusPaused {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: task %s is paused", dispatcher.ErrValidation, taskID)
	}
	if task.Status == dispatcher.StatusCompleted {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: task %s has already completed", dispatcher.ErrValidation, taskID)
	}
	if id, ok := s.RunningTask(); ok && id != taskID {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: task %s is currently running, try again shortly", dispatcher.ErrConflict, id)
	}

	if err := s.executeOne(ctx, taskID, true); err != nil {
		// executeOne already recorded the error on the task; surface the
		// refreshed record to the caller rather than swallow it.
		updated, getErr := s.store.Get(taskID)
		if getErr != nil {
			return dispatcher.TaskInfo{}, err
		}
		return updated, nil
	}
	return s.store.Get(taskID)
}
