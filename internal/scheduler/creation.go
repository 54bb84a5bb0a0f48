package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

// TaskCreationSpec is the validated input to AddTask. Kwargs retains the
// full creation payload verbatim (spec §3: "kwargs ... the full creation
// payload"), so a later replay or resume never needs to reconstruct it from
// the typed fields.
type TaskCreationSpec struct {
	TaskType             dispatcher.TaskType
	AccountID            string
	AccountName          string
	SysType              string
	IntervalSeconds      int
	ValidTimeRange       *clock.Window
	TaskEndTime          time.Time
	Mode                 dispatcher.Mode
	InteractionNoteCount int
	Kwargs               map[string]any
}

// AddTask validates spec, enforces the licence's task-count ceiling and
// interval floor, rejects a duplicate (task_type, account_id), and inserts
// the new TaskInfo with its first next_execution_time computed (spec §4.9).
func (s *Scheduler) AddTask(spec TaskCreationSpec) (dispatcher.TaskInfo, error) {
	if !spec.TaskType.Valid() {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: unsupported task_type %q", dispatcher.ErrValidation, spec.TaskType)
	}
	if spec.AccountID == "" {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: account_id is required", dispatcher.ErrValidation)
	}
	if !spec.Mode.Valid() {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: unsupported mode %q", dispatcher.ErrValidation, spec.Mode)
	}
	if !spec.ValidTimeRange.Valid() {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: invalid time window", dispatcher.ErrValidation)
	}
	if spec.IntervalSeconds <= 0 {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: interval_seconds must be positive", dispatcher.ErrValidation)
	}
	if spec.InteractionNoteCount == 0 {
		spec.InteractionNoteCount = 3
	}
	if spec.InteractionNoteCount < 1 || spec.InteractionNoteCount > 5 {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: interaction_note_count must be between 1 and 5", dispatcher.ErrValidation)
	}

	// License coercion (spec §4.10): in free mode (never activated, or
	// activated but expired), interval is silently forced to the licensed
	// floor rather than validated against it. Once activated, interval must
	// fall in [900, 10800] (and still honour a config-specific floor, if
	// set).
	if !s.gate.CanExecuteImmediately() {
		if floor := s.gate.GetIntervalLimit(); floor != nil {
			spec.IntervalSeconds = *floor
		}
	} else {
		if spec.IntervalSeconds < 900 || spec.IntervalSeconds > 10800 {
			return dispatcher.TaskInfo{}, fmt.Errorf("%w: interval_seconds must be between 900 and 10800 when activated", dispatcher.ErrValidation)
		}
		if floor := s.gate.GetIntervalLimit(); floor != nil && spec.IntervalSeconds < *floor {
			return dispatcher.TaskInfo{}, fmt.Errorf("%w: interval_seconds below licensed floor of %ds", dispatcher.ErrValidation, *floor)
		}
	}

	key := dispatcher.Key{TaskType: spec.TaskType, AccountID: spec.AccountID}
	if existing, ok := s.store.FindByKey(key); ok {
		return dispatcher.TaskInfo{}, fmt.Errorf("%w: task %s already exists for account %s", dispatcher.ErrConflict, existing, spec.AccountID)
	}

	if max := s.gate.GetMaxTasks(); max > 0 {
		active := 0
		for _, t := range s.store.List(dispatcher.ListFilter{}) {
			if t.Status != dispatcher.StatusCompleted {
				active++
			}
		}
		if active >= max {
			// Spec §4.10 distinguishes the two ceiling-hit cases by error
			// code: unlicensed callers are steered toward activation,
			// licensed callers are told they've hit their paid quota.
			if !s.gate.CanExecuteImmediately() {
				return dispatcher.TaskInfo{}, fmt.Errorf("%w: activate a license to create more than %d task(s)", dispatcher.ErrLicenseNotActivated, max)
			}
			return dispatcher.TaskInfo{}, fmt.Errorf("%w: licensed limit of %d active tasks reached", dispatcher.ErrTaskLimitReached, max)
		}
	}

	now := s.clk.Now()
	next := dispatcher.ComputeNextExecution(now, nil, spec.IntervalSeconds, spec.ValidTimeRange, spec.TaskEndTime)
	status := dispatcher.StatusPending
	if next == nil {
		status = dispatcher.StatusCompleted
	}

	task := dispatcher.TaskInfo{
		TaskID:               uuid.NewString(),
		AccountID:            spec.AccountID,
		AccountName:          spec.AccountName,
		TaskType:             spec.TaskType,
		Status:               status,
		IntervalSeconds:      spec.IntervalSeconds,
		ValidTimeRange:       spec.ValidTimeRange,
		TaskEndTime:          spec.TaskEndTime,
		Mode:                 spec.Mode,
		InteractionNoteCount: spec.InteractionNoteCount,
		NextExecutionTime:    next,
		CreatedAt:            now,
		UpdatedAt:            now,
		Kwargs:               spec.Kwargs,
		SysType:              spec.SysType,
	}

	if err := s.store.Insert(task); err != nil {
		return dispatcher.TaskInfo{}, err
	}
	s.wake()
	return task, nil
}
