package scheduler_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/license"
	"github.com/psdyuan2/AiMediaOps/internal/runner"
	"github.com/psdyuan2/AiMediaOps/internal/scheduler"
)

// fakeRunner lets tests control RunOnce's outcome per task without wiring a
// real sidecar/content-generator stack.
type fakeRunner struct {
	continueRun bool
	err         error
	calls       *int
	block       <-chan struct{} // if set, RunOnce waits for it to close before returning
}

func (f *fakeRunner) RunOnce(ctx context.Context, skipWindowCheck bool) (bool, error) {
	if f.calls != nil {
		*f.calls++
	}
	if f.block != nil {
		<-f.block
	}
	return f.continueRun, f.err
}

func newTestGate(t *testing.T) *license.Gate {
	t.Helper()
	dir := t.TempDir()
	store := license.NewStore(filepath.Join(dir, "license.bin"), filepath.Join(dir, "license.key"), "")
	return license.NewGate(store, nil)
}

func newTestScheduler(t *testing.T, now time.Time, factory func(taskID string, deps runner.Deps) runner.Runner) (*scheduler.Scheduler, *dispatcher.Store) {
	t.Helper()
	dir := t.TempDir()
	clk := clock.ClockFunc(func() time.Time { return now })
	store := dispatcher.NewStore(filepath.Join(dir, "dispatcher.json"), clk, nil)
	require.NoError(t, store.Load())
	gate := newTestGate(t)
	s := scheduler.New(store, gate, clk, factory, runner.Deps{Clock: clk}, nil)
	return s, store
}

func TestAddTaskRejectsDuplicateAccountAndType(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner { return &fakeRunner{continueRun: true} })

	spec := scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	}
	_, err := s.AddTask(spec)
	require.NoError(t, err)

	_, err = s.AddTask(spec)
	require.ErrorIs(t, err, dispatcher.ErrConflict)
}

func TestAddTaskEnforcesFreeTaskLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner { return &fakeRunner{continueRun: true} })

	_, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	_, err = s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-2",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.ErrorIs(t, err, dispatcher.ErrLicenseNotActivated)
}

func TestAddTaskCoercesIntervalToFreeFloor(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner { return &fakeRunner{continueRun: true} })

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 60,
	})
	require.NoError(t, err)
	require.Equal(t, license.FreeIntervalLimitSeconds, task.IntervalSeconds)
}

func TestExecuteImmediatelyRequiresLicense(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	s, store := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner {
		return &fakeRunner{continueRun: true, calls: &calls}
	})

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	_, err = s.ExecuteTaskImmediately(context.Background(), task.TaskID)
	require.Error(t, err) // free tier: immediate execution requires a licence
	require.ErrorIs(t, err, dispatcher.ErrLicenseNotActivated)

	updated, err := store.Get(task.TaskID)
	require.NoError(t, err)
	require.Equal(t, dispatcher.StatusPending, updated.Status)
	require.Equal(t, 0, calls)

	_, running := s.RunningTask()
	require.False(t, running)
}

func TestPauseThenResumeRecomputesNextExecution(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, store := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner { return &fakeRunner{continueRun: true} })

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	_, err = s.Pause(task.TaskID)
	require.NoError(t, err)
	paused, err := store.Get(task.TaskID)
	require.NoError(t, err)
	require.Equal(t, dispatcher.StatusPaused, paused.Status)

	resumed, err := s.Resume(task.TaskID)
	require.NoError(t, err)
	require.Equal(t, dispatcher.StatusPending, resumed.Status)
	require.NotNil(t, resumed.NextExecutionTime)
}

func TestReorderTaskRefusesPausedTask(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner { return &fakeRunner{continueRun: true} })

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	_, err = s.Pause(task.TaskID)
	require.NoError(t, err)

	_, err = s.ReorderTask(task.TaskID, time.Hour)
	require.ErrorIs(t, err, dispatcher.ErrValidation)
}

func TestRemoveOfPendingTaskPurgesImmediately(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner { return &fakeRunner{continueRun: true} })

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	err = s.Remove(task.TaskID)
	require.NoError(t, err)
}

// TestRemoveOfRunningTaskPausesWaitsThenPurges grounds spec §4.9's Remove
// contract for a task that's mid-execution: pause, wait briefly, then purge
// — it must still succeed, not hard-refuse (review fix for lifecycle.go).
func TestRemoveOfRunningTaskPausesWaitsThenPurges(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	block := make(chan struct{})
	s, store := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner {
		return &fakeRunner{continueRun: true, block: block}
	})

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		id, running := s.RunningTask()
		return running && id == task.TaskID
	}, 2*time.Second, 5*time.Millisecond)

	removeErr := make(chan error, 1)
	go func() { removeErr <- s.Remove(task.TaskID) }()

	// Give Remove a moment to observe the running task and issue its pause
	// before the in-flight RunOnce is allowed to finish.
	time.Sleep(50 * time.Millisecond)
	close(block)

	require.NoError(t, <-removeErr)
	_, err = store.Get(task.TaskID)
	require.ErrorIs(t, err, dispatcher.ErrNotFound)
}

func TestLoopExecutesDueTaskAndMarksCompleted(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	s, store := newTestScheduler(t, now, func(string, runner.Deps) runner.Runner {
		return &fakeRunner{continueRun: false, calls: &calls}
	})

	task, err := s.AddTask(scheduler.TaskCreationSpec{
		TaskType:        dispatcher.TaskTypeXHSContent,
		AccountID:       "acct-1",
		Mode:            dispatcher.ModeStandard,
		IntervalSeconds: 7200,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		updated, err := store.Get(task.TaskID)
		return err == nil && updated.Status == dispatcher.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, calls)
}
