// Package dispatcher implements the durable registry of all TaskInfo
// records (spec §3 TaskInfo, §4.3 Dispatcher store) and the cadence math
// (ComputeNextExecution) that the scheduler core in internal/scheduler uses
// to drive them. Grounded on the teacher's
// internal/app/scheduler (FileJobStore + Scheduler) and internal/domain/task
// (unified Task record, Status enum).
package dispatcher

import (
	"errors"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
)

// Sentinel errors mapped to HTTP status by internal/httpapi, grounded on the
// teacher's delivery/server/app error set (ErrValidation, ErrNotFound,
// ErrConflict) and license-specific additions from spec §7.
var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("task not found")
	ErrLicenseNotActivated = errors.New("license not activated")
	ErrLicenseExpired      = errors.New("license expired")
	ErrTaskLimitReached    = errors.New("task limit reached")
)

// Status is a TaskInfo's lifecycle state (spec §3).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// TaskType is a tagged enum; spec §3 notes "currently one variant".
type TaskType string

// TaskTypeXHSContent is the sole supported task type: automated content
// generation and interaction against a Xiaohongshu (XHS) account.
const TaskTypeXHSContent TaskType = "xhs_content"

func (t TaskType) Valid() bool {
	return t == TaskTypeXHSContent
}

// Mode selects which run-phases the runner performs for a task (spec §3).
type Mode string

const (
	ModeStandard    Mode = "standard"
	ModeInteraction Mode = "interaction"
	ModePublish     Mode = "publish"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeStandard, ModeInteraction, ModePublish:
		return true
	default:
		return false
	}
}

// TaskInfo is one task record (spec §3). It is a flat value type: the
// scheduler and API pass TaskInfo and task ids around by value/copy, never
// pointers into a shared live object, per DESIGN.md's resolution of the
// "Scheduler ↔ TaskInfo ↔ TaskRunner" cyclic-ownership design note.
type TaskInfo struct {
	TaskID      string   `json:"task_id"`
	AccountID   string   `json:"account_id"`
	AccountName string   `json:"account_name"`
	TaskType    TaskType `json:"task_type"`
	Status      Status   `json:"status"`

	IntervalSeconds int           `json:"interval_seconds"`
	ValidTimeRange  *clock.Window `json:"valid_time_range"`
	TaskEndTime     time.Time     `json:"task_end_time"`

	Mode                  Mode `json:"mode"`
	InteractionNoteCount  int  `json:"interaction_note_count"`

	LastExecutionTime *time.Time `json:"last_execution_time"`
	NextExecutionTime *time.Time `json:"next_execution_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LoginStatus          string     `json:"login_status"`
	LoginStatusCheckedAt *time.Time `json:"login_status_checked_at"`

	Kwargs  map[string]any `json:"kwargs"`
	SysType string         `json:"sys_type"`

	// RetryCount and LastError are the expansion's error-triage additions
	// (SPEC_FULL.md §3).
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
}

// Key identifies a task by its (task_type, account_id) uniqueness tuple
// (spec §3 invariant: "At most one TaskInfo per (task_type, account_id)").
type Key struct {
	TaskType  TaskType
	AccountID string
}

func (t TaskInfo) Key() Key {
	return Key{TaskType: t.TaskType, AccountID: t.AccountID}
}

// Clone returns a deep-enough copy for safe concurrent read access: the
// Kwargs map and ValidTimeRange pointer are copied so callers can't mutate
// the store's internal state through a returned TaskInfo.
func (t TaskInfo) Clone() TaskInfo {
	cp := t
	if t.ValidTimeRange != nil {
		w := *t.ValidTimeRange
		cp.ValidTimeRange = &w
	}
	if t.LastExecutionTime != nil {
		v := *t.LastExecutionTime
		cp.LastExecutionTime = &v
	}
	if t.NextExecutionTime != nil {
		v := *t.NextExecutionTime
		cp.NextExecutionTime = &v
	}
	if t.LoginStatusCheckedAt != nil {
		v := *t.LoginStatusCheckedAt
		cp.LoginStatusCheckedAt = &v
	}
	if t.Kwargs != nil {
		m := make(map[string]any, len(t.Kwargs))
		for k, v := range t.Kwargs {
			m[k] = v
		}
		cp.Kwargs = m
	}
	return cp
}
