package dispatcher

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatch_config.json")
	s := NewStore(path, clock.System{}, nil)
	require.NoError(t, s.Load())
	return s
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	s := newTestStore(t)
	task := TaskInfo{TaskID: "t1", TaskType: TaskTypeXHSContent, AccountID: "acct-1"}
	require.NoError(t, s.Insert(task))

	dup := TaskInfo{TaskID: "t2", TaskType: TaskTypeXHSContent, AccountID: "acct-1"}
	err := s.Insert(dup)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetReturnsNotFoundForMissingTask(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMutatesAndPersists(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(TaskInfo{TaskID: "t1", TaskType: TaskTypeXHSContent, AccountID: "acct-1"}))

	updated, err := s.Update("t1", func(t *TaskInfo) error {
		t.Status = StatusPaused
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, updated.Status)

	reloaded, err := s.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, reloaded.Status)
}

func TestRemoveDropsTaskFromAccountIndex(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(TaskInfo{TaskID: "t1", TaskType: TaskTypeXHSContent, AccountID: "acct-1"}))
	require.NoError(t, s.Remove("t1"))

	_, err := s.Get("t1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, s.List(ListFilter{AccountID: "acct-1"}))
}

func TestListFiltersByStatusAndAccount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(TaskInfo{TaskID: "t1", TaskType: TaskTypeXHSContent, AccountID: "acct-1", Status: StatusPending}))
	require.NoError(t, s.Insert(TaskInfo{TaskID: "t2", TaskType: "other", AccountID: "acct-2", Status: StatusPaused}))

	pending := s.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "t1", pending[0].TaskID)

	byAccount := s.List(ListFilter{AccountID: "acct-2"})
	require.Len(t, byAccount, 1)
	assert.Equal(t, "t2", byAccount[0].TaskID)
}

func TestLoadCoercesRunningTasksBackToPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch_config.json")
	s1 := NewStore(path, clock.System{}, nil)
	require.NoError(t, s1.Load())
	require.NoError(t, s1.Insert(TaskInfo{TaskID: "t1", TaskType: TaskTypeXHSContent, AccountID: "acct-1", Status: StatusRunning}))

	s2 := NewStore(path, clock.System{}, nil)
	require.NoError(t, s2.Load())
	reloaded, err := s2.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, reloaded.Status)
}

func TestComputeNextExecutionFreshStartInsideWindow(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	w := &clock.Window{StartHour: 9, EndHour: 18}
	next := ComputeNextExecution(now, nil, 3600, w, time.Time{})
	require.NotNil(t, next)
	assert.Equal(t, now, *next)
}

func TestComputeNextExecutionFreshStartOutsideWindowSnaps(t *testing.T) {
	now := time.Date(2026, 7, 30, 22, 0, 0, 0, time.UTC)
	w := &clock.Window{StartHour: 9, EndHour: 18}
	next := ComputeNextExecution(now, nil, 3600, w, time.Time{})
	require.NotNil(t, next)
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 31, next.Day())
}

func TestComputeNextExecutionReturnsNilPastEndDate(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	last := now.Add(-time.Hour)
	end := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	next := ComputeNextExecution(now, &last, 3600, nil, end)
	assert.Nil(t, next)
}

func TestComputeNextExecutionAdvancesFromLastByInterval(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Minute)
	next := ComputeNextExecution(now, &last, 3600, nil, time.Time{})
	require.NotNil(t, next)
	assert.Equal(t, last.Add(time.Hour), *next)
}
