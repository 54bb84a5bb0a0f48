// Package runner implements the task runner (C8): the one-shot execution
// of a task's business action against the sidecar. The scheduler (C9) sees
// a Runner only through RunOnce — spec §4.8 treats it as an opaque
// callable, and this package's external collaborators (content generation,
// poster rendering, the sidecar's browser-automation surface) are narrow Go
// interfaces whose concrete implementations live outside the core.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/cookie"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/logcollector"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
	"github.com/psdyuan2/AiMediaOps/internal/sidecar"
	"github.com/psdyuan2/AiMediaOps/internal/taskctx"
)

// Content is the generated post payload handed to the sidecar client.
type Content struct {
	Title      string
	Body       string
	ImagePaths []string
}

// ContentGenerator produces a post's text/image content for a task. The
// concrete implementation (LLM prompting + HTML-to-PNG poster rendering)
// is an external collaborator (spec §1 Non-goals); this interface is all
// the runner consumes from it.
type ContentGenerator interface {
	Generate(ctx context.Context, task dispatcher.TaskInfo) (Content, error)
}

// SidecarClient is the narrow surface the runner needs from the
// browser-automation sidecar: login verification and the two platform
// actions a task may perform depending on its Mode.
type SidecarClient interface {
	CheckLogin(ctx context.Context, accountID string) (loggedIn bool, err error)
	Publish(ctx context.Context, accountID string, content Content) error
	Interact(ctx context.Context, accountID string, noteCount int) error
}

// Runner is the interface the scheduler core (C9) drives.
type Runner interface {
	// RunOnce performs one execution cycle, honouring the task's pause
	// status and, unless skipWindowCheck, its time window. It returns
	// continueRun=false only when the task has reached its end date; every
	// other outcome (including an action error) returns continueRun=true
	// (spec §4.8).
	RunOnce(ctx context.Context, skipWindowCheck bool) (continueRun bool, err error)
}

// Deps bundles the collaborators a Runner needs. Grounded on the teacher's
// dependency-injected service constructors (e.g. auth/app/subscription.Service)
// rather than a package-level singleton.
type Deps struct {
	Tasks     *dispatcher.Store
	Context   *taskctx.Store
	Logs      *logcollector.Collector
	Sidecar   *sidecar.Manager
	Cookies   *cookie.Courier
	Client    SidecarClient
	Generator ContentGenerator
	Clock     clock.Clock
}

// Factory constructs a Runner for a task from its persisted kwargs and
// sys_type, never from a scheduler back-reference (spec §9 design note:
// "cyclic ownership ... pass ids, not pointers").
type Factory func(taskID string, deps Deps) Runner

// XHSRunner is the sole concrete Runner (task_type=xhs_content).
type XHSRunner struct {
	taskID string
	deps   Deps
}

// NewXHSRunner is a Factory for TaskTypeXHSContent.
func NewXHSRunner(taskID string, deps Deps) Runner {
	return &XHSRunner{taskID: taskID, deps: deps}
}

// RunOnce implements Runner. It always re-reads the TaskInfo from the
// dispatcher store at the top of the call — never from a value captured at
// construction — so an in-flight edit via update_task takes effect at the
// very next execution (spec §9 design note: "Hot-swap of runner
// parameters").
func (r *XHSRunner) RunOnce(ctx context.Context, skipWindowCheck bool) (bool, error) {
	task, err := r.deps.Tasks.Get(r.taskID)
	if err != nil {
		return true, fmt.Errorf("runner: load task: %w", err)
	}

	// Unified pause bit (spec §9 design note b): the scheduler already
	// filters paused tasks out of its ready set, but a pause requested
	// while this call was queued behind the execution mutex must still be
	// honoured here.
	if task.Status == dispatcher.StatusPaused {
		return true, nil
	}

	if !skipWindowCheck && task.ValidTimeRange != nil {
		now := r.deps.Clock.Now()
		if !clock.InWindow(now, task.ValidTimeRange) {
			return true, nil
		}
	}

	logger := logcollector.NewTaskLogger(r.deps.Logs, r.taskID, logcollector.TaskLogBindType, "runner")

	if !task.TaskEndTime.IsZero() {
		now := r.deps.Clock.Now()
		ny, nm, nd := now.Date()
		ey, em, ed := task.TaskEndTime.Date()
		if !(ny < ey || (ny == ey && nm < em) || (ny == ey && nm == em && nd < ed)) {
			logger.Info("task end date reached, signalling completion")
			return false, nil
		}
	}

	if err := r.deps.Sidecar.EnsureRunning(ctx, task.SysType, true); err != nil {
		logger.Error("sidecar unavailable: %v", err)
		return true, fmt.Errorf("runner: sidecar unavailable: %w", err)
	}

	userCookiesDir, err := r.deps.Cookies.UserCookiesDir(task.AccountID)
	if err != nil {
		logger.Error("cookie dir: %v", err)
		return true, fmt.Errorf("runner: cookie dir: %w", err)
	}
	sourceCookie := userCookiesDir + "/cookies.json"
	if err := r.deps.Cookies.Dispatch(sourceCookie, r.deps.Sidecar.WorkDir); err != nil {
		logger.Error("cookie dispatch: %v", err)
		return true, fmt.Errorf("runner: cookie dispatch: %w", err)
	}
	defer r.deps.Cookies.CloseTask(task.AccountID, r.deps.Sidecar.WorkDir)

	r.ensureContext(task, logger)

	loggedIn, err := r.deps.Client.CheckLogin(ctx, task.AccountID)
	now := r.deps.Clock.Now()
	if _, updErr := r.deps.Tasks.Update(r.taskID, func(t *dispatcher.TaskInfo) error {
		t.LoginStatus = loginStatusLabel(loggedIn, err)
		t.LoginStatusCheckedAt = &now
		return nil
	}); updErr != nil {
		logger.Warn("persist login status: %v", updErr)
	}
	r.recordLoginStatus(loggedIn, err, now, logger)
	if err != nil {
		logger.Error("login check failed: %v", err)
		return true, nil
	}
	if !loggedIn {
		logger.Warn("account %s is not logged in, skipping this cycle", task.AccountID)
		return true, nil
	}

	stepID := r.beginStep(logger)

	if err := r.performMode(ctx, task, logger); err != nil {
		logger.Error("action failed: %v", err)
		r.recordStepResult(stepID, task.Mode, "error", err.Error(), logger)
		return true, nil
	}

	r.recordStepResult(stepID, task.Mode, "completed", "", logger)
	return true, nil
}

// ensureContext lazily creates the task's TaskContext document on first run
// (spec §3's "created once per task ... seeded with the creation kwargs",
// grounded on the Python original's Task_Manager_Context.create_new_meta
// call in TaskManager.__init__). Context is an optional collaborator — a
// nil Store (e.g. in tests that don't exercise it) disables recording
// entirely rather than panicking.
func (r *XHSRunner) ensureContext(task dispatcher.TaskInfo, logger *logcollector.TaskLogger) {
	if r.deps.Context == nil {
		return
	}
	if _, err := r.deps.Context.Load(r.taskID); err == nil {
		return
	}
	meta := map[string]any{
		"xhs_account_id":         task.AccountID,
		"xhs_account_name":       task.AccountName,
		"task_type":              task.TaskType,
		"mode":                   task.Mode,
		"interval":               task.IntervalSeconds,
		"interaction_note_count": task.InteractionNoteCount,
		"sys_type":               task.SysType,
	}
	if _, err := r.deps.Context.CreateNew(r.taskID, meta); err != nil {
		logger.Warn("create task context: %v", err)
	}
}

// recordLoginStatus mirrors the original's context.update_meta(login_status=...,
// login_status_checked_at=...) call made right after the per-run login check
// (app/manager/task_manager.py run_once).
func (r *XHSRunner) recordLoginStatus(loggedIn bool, checkErr error, at time.Time, logger *logcollector.TaskLogger) {
	if r.deps.Context == nil {
		return
	}
	fields := map[string]any{
		"login_status":            loginStatusLabel(loggedIn, checkErr),
		"login_status_checked_at": at.Format(time.RFC3339),
	}
	if _, err := r.deps.Context.UpdateMeta(r.taskID, fields); err != nil {
		logger.Warn("update login status in task context: %v", err)
	}
}

// beginStep mints a new step record for this execution cycle (grounded on
// Task_Manager_Context.next_step's monotonic counter), used to anchor the
// run's mode and outcome under context.step.N.
func (r *XHSRunner) beginStep(logger *logcollector.TaskLogger) *int64 {
	if r.deps.Context == nil {
		return nil
	}
	id, err := r.deps.Context.NextStep(r.taskID)
	if err != nil {
		logger.Warn("advance task context step: %v", err)
		return nil
	}
	return &id
}

// recordStepResult persists the outcome of the step begun by beginStep. A
// nil stepID (Context disabled, or NextStep failed) makes this a no-op.
func (r *XHSRunner) recordStepResult(stepID *int64, mode dispatcher.Mode, outcome, errMsg string, logger *logcollector.TaskLogger) {
	if r.deps.Context == nil || stepID == nil {
		return
	}
	data := map[string]any{
		"mode":    mode,
		"outcome": outcome,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	if _, err := r.deps.Context.Save(r.taskID, data, stepID); err != nil {
		logger.Warn("save task context step: %v", err)
	}
}

func (r *XHSRunner) performMode(ctx context.Context, task dispatcher.TaskInfo, logger *logcollector.TaskLogger) error {
	switch task.Mode {
	case dispatcher.ModeInteraction:
		return r.deps.Client.Interact(ctx, task.AccountID, task.InteractionNoteCount)
	case dispatcher.ModePublish, dispatcher.ModeStandard:
		content, err := r.deps.Generator.Generate(ctx, task)
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		if err := r.deps.Client.Publish(ctx, task.AccountID, content); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		if task.Mode == dispatcher.ModeStandard && task.InteractionNoteCount > 0 {
			if err := r.deps.Client.Interact(ctx, task.AccountID, task.InteractionNoteCount); err != nil {
				logger.Warn("interaction phase failed after publish: %v", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported mode %q", task.Mode)
	}
}

func loginStatusLabel(loggedIn bool, err error) string {
	if err != nil {
		return "unknown"
	}
	if loggedIn {
		return "logged_in"
	}
	return "logged_out"
}
