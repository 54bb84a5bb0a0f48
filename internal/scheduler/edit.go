package scheduler

import (
	"fmt"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

// TaskEdit carries the subset of TaskInfo fields update_task may change
// (spec §4.9). A nil pointer field means "leave unchanged".
type TaskEdit struct {
	IntervalSeconds      *int
	ValidTimeRange       **clock.Window
	TaskEndTime          *time.Time
	Mode                 *dispatcher.Mode
	InteractionNoteCount *int
	AccountName          *string
	Kwargs               map[string]any
}

// UpdateTask applies edit to taskID. Any change to cadence fields
// (IntervalSeconds, ValidTimeRange, TaskEndTime) recomputes
// next_execution_time from the task's last run, per spec §4.9's "edits
// take effect at the task's next due check" rule — RunOnce re-reads the
// live record anyway, but recomputing here means the scheduler's own
// ready-set scan reflects the edit immediately too.
func (s *Scheduler) UpdateTask(taskID string, edit TaskEdit) (dispatcher.TaskInfo, error) {
	cadenceChanged := edit.IntervalSeconds != nil || edit.ValidTimeRange != nil || edit.TaskEndTime != nil

	return s.store.Update(taskID, func(t *dispatcher.TaskInfo) error {
		if t.Status == dispatcher.StatusCompleted {
			return fmt.Errorf("%w: task %s has already completed", dispatcher.ErrValidation, taskID)
		}

		if edit.IntervalSeconds != nil {
			if *edit.IntervalSeconds <= 0 {
				return fmt.Errorf("%w: interval_seconds must be positive", dispatcher.ErrValidation)
			}
			next := *edit.IntervalSeconds
			if !s.gate.CanExecuteImmediately() {
				if floor := s.gate.GetIntervalLimit(); floor != nil {
					next = *floor
				}
			} else {
				if next < 900 || next > 10800 {
					return fmt.Errorf("%w: interval_seconds must be between 900 and 10800 when activated", dispatcher.ErrValidation)
				}
				if floor := s.gate.GetIntervalLimit(); floor != nil && next < *floor {
					return fmt.Errorf("%w: interval_seconds below licensed floor of %ds", dispatcher.ErrValidation, *floor)
				}
			}
			t.IntervalSeconds = next
		}
		if edit.ValidTimeRange != nil {
			if !(*edit.ValidTimeRange).Valid() {
				return fmt.Errorf("%w: invalid time window", dispatcher.ErrValidation)
			}
			t.ValidTimeRange = *edit.ValidTimeRange
		}
		if edit.TaskEndTime != nil {
			t.TaskEndTime = *edit.TaskEndTime
		}
		if edit.Mode != nil {
			if !edit.Mode.Valid() {
				return fmt.Errorf("%w: unsupported mode %q", dispatcher.ErrValidation, *edit.Mode)
			}
			t.Mode = *edit.Mode
		}
		if edit.InteractionNoteCount != nil {
			if *edit.InteractionNoteCount < 1 || *edit.InteractionNoteCount > 5 {
				return fmt.Errorf("%w: interaction_note_count must be between 1 and 5", dispatcher.ErrValidation)
			}
			t.InteractionNoteCount = *edit.InteractionNoteCount
		}
		if edit.AccountName != nil {
			t.AccountName = *edit.AccountName
		}
		if edit.Kwargs != nil {
			t.Kwargs = edit.Kwargs
		}

		if cadenceChanged && t.Status != dispatcher.StatusRunning {
			next := dispatcher.ComputeNextExecution(s.clk.Now(), t.LastExecutionTime, t.IntervalSeconds, t.ValidTimeRange, t.TaskEndTime)
			t.NextExecutionTime = next
			if next == nil {
				t.Status = dispatcher.StatusCompleted
			} else if t.Status != dispatcher.StatusPaused {
				t.Status = dispatcher.StatusPending
			}
		}
		return nil
	})
}

// ReorderTask shifts taskID's next_execution_time by offset, snapping back
// into its valid window if the shift lands outside it (spec §4.9's
// reorder_task). It refuses to reorder a running, paused, or completed
// task.
func (s *Scheduler) ReorderTask(taskID string, offset time.Duration) (dispatcher.TaskInfo, error) {
	return s.store.Update(taskID, func(t *dispatcher.TaskInfo) error {
		switch t.Status {
		case dispatcher.StatusRunning:
			return fmt.Errorf("%w: task %s is currently running", dispatcher.ErrConflict, taskID)
		case dispatcher.StatusPaused:
			return fmt.Errorf("%w: task %s is paused", dispatcher.ErrValidation, taskID)
		case dispatcher.StatusCompleted:
			return fmt.Errorf("%w: task %s has already completed", dispatcher.ErrValidation, taskID)
		}

		base := s.clk.Now()
		if t.NextExecutionTime != nil {
			base = *t.NextExecutionTime
		}
		shifted := base.Add(offset)
		if !t.TaskEndTime.IsZero() {
			ey, em, ed := t.TaskEndTime.Date()
			sy, sm, sd := shifted.Date()
			if !(sy < ey || (sy == ey && sm < em) || (sy == ey && sm == em && sd < ed)) {
				return fmt.Errorf("%w: reorder would move task %s past its task_end_time", dispatcher.ErrValidation, taskID)
			}
		}
		if !clock.InWindow(shifted, t.ValidTimeRange) {
			shifted = clock.NextWindowStart(shifted, t.ValidTimeRange)
		}
		t.NextExecutionTime = &shifted
		return nil
	})
}
