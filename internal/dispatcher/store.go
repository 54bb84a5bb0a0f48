package dispatcher

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/filestore"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
)

const storeVersion = 1

// document is the on-disk shape of the dispatcher store (spec §4.3): "one
// file containing {version, saved_at, tasks[], account_tasks{}}".
type document struct {
	Version      int                 `json:"version"`
	SavedAt      time.Time           `json:"saved_at"`
	Tasks        []TaskInfo          `json:"tasks"`
	AccountTasks map[string][]string `json:"account_tasks"`
}

// Store is the single-writer, atomically-persisted registry of all
// TaskInfo records and the account→tasks index. Grounded on the teacher's
// FileJobStore (internal/app/scheduler/jobstore_file.go), generalized from
// one-file-per-job to a single document because §4.3 specifies one file for
// the whole registry (so the account index can be persisted alongside it
// without a second source of truth).
type Store struct {
	path   string
	logger logging.Logger
	clk    clock.Clock

	mu           sync.RWMutex
	tasks        map[string]TaskInfo // task_id -> TaskInfo
	accountTasks map[string][]string // account_id -> []task_id
}

// NewStore returns a Store backed by the single JSON file at path.
func NewStore(path string, clk clock.Clock, logger logging.Logger) *Store {
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{
		path:         path,
		logger:       logging.OrNop(logger),
		clk:          clk,
		tasks:        make(map[string]TaskInfo),
		accountTasks: make(map[string][]string),
	}
}

// Load reads the store file (if present) and reconstructs in-memory state,
// applying the two resume invariants from spec §4.3:
//
//  1. Every TaskInfo with status=running is coerced to pending (the owning
//     process died with it mid-run).
//  2. Every next_execution_time in the past is recomputed against the
//     current window.
//
// Entries that fail to deserialise are logged and skipped (CorruptState,
// spec §7), not fatal to the rest of the load.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := filestore.ReadFileOrEmpty(s.path)
	if err != nil {
		return fmt.Errorf("dispatcher: read store: %w", err)
	}
	if data == nil {
		return nil // nothing persisted yet
	}

	var doc struct {
		Tasks        []json.RawMessage   `json:"tasks"`
		AccountTasks map[string][]string `json:"account_tasks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("dispatcher: unmarshal store: %w", err)
	}

	now := s.clk.Now()
	tasks := make(map[string]TaskInfo, len(doc.Tasks))
	for i, raw := range doc.Tasks {
		var t TaskInfo
		if err := json.Unmarshal(raw, &t); err != nil {
			s.logger.Warn("dispatcher: skipping corrupt task entry %d: %v", i, err)
			continue
		}
		if t.TaskID == "" {
			s.logger.Warn("dispatcher: skipping corrupt task entry with empty id")
			continue
		}
		if t.Status == StatusRunning {
			t.Status = StatusPending
			t.LastError = ""
		}
		if t.Status == StatusPending && t.NextExecutionTime != nil && !t.NextExecutionTime.After(now) {
			t.NextExecutionTime = ComputeNextExecution(now, t.LastExecutionTime, t.IntervalSeconds, t.ValidTimeRange, t.TaskEndTime)
			if t.NextExecutionTime == nil {
				t.Status = StatusCompleted
			}
		}
		tasks[t.TaskID] = t
	}

	accountTasks := doc.AccountTasks
	if accountTasks == nil {
		accountTasks = make(map[string][]string)
	}

	s.tasks = tasks
	s.accountTasks = accountTasks
	return nil
}

// persistLocked writes the full document atomically. Caller must hold s.mu
// (read or write — a snapshot of the current maps is taken either way).
func (s *Store) persistLocked() error {
	doc := document{
		Version:      storeVersion,
		SavedAt:      s.clk.Now(),
		Tasks:        make([]TaskInfo, 0, len(s.tasks)),
		AccountTasks: s.accountTasks,
	}
	for _, t := range s.tasks {
		doc.Tasks = append(doc.Tasks, t)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("dispatcher: marshal store: %w", err)
	}
	if err := filestore.AtomicWrite(s.path, data, 0o644); err != nil {
		return fmt.Errorf("dispatcher: write store: %w", err)
	}
	return nil
}

// Persist writes the current in-memory state to disk.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// FindByKey returns the task_id registered for (task_type, account_id), if
// any.
func (s *Store) FindByKey(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, t := range s.tasks {
		if t.Key() == key {
			return id, true
		}
	}
	return "", false
}

// Insert adds a brand-new task and persists. Returns ErrConflict if the
// (task_type, account_id) pair is already registered.
func (s *Store) Insert(t TaskInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.tasks {
		if existing.Key() == t.Key() {
			return fmt.Errorf("%w: task %s already exists for account %s", ErrConflict, id, t.AccountID)
		}
	}

	s.tasks[t.TaskID] = t
	s.accountTasks[t.AccountID] = appendUnique(s.accountTasks[t.AccountID], t.TaskID)
	return s.persistLocked()
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(taskID string) (TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return TaskInfo{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	return t.Clone(), nil
}

// Update applies mutate to the task's current state and persists the
// result. mutate receives a mutable copy; returning an error aborts the
// update without persisting.
func (s *Store) Update(taskID string, mutate func(*TaskInfo) error) (TaskInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return TaskInfo{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	working := t.Clone()
	if err := mutate(&working); err != nil {
		return TaskInfo{}, err
	}
	working.UpdatedAt = s.clk.Now()
	s.tasks[taskID] = working
	if err := s.persistLocked(); err != nil {
		return TaskInfo{}, err
	}
	return working.Clone(), nil
}

// Remove deletes the task from the registry and the account index, and
// persists. It is not an error to remove a task that was already absent.
func (s *Store) Remove(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	delete(s.tasks, taskID)
	s.accountTasks[t.AccountID] = removeString(s.accountTasks[t.AccountID], taskID)
	if len(s.accountTasks[t.AccountID]) == 0 {
		delete(s.accountTasks, t.AccountID)
	}
	return s.persistLocked()
}

// ListFilter narrows List results.
type ListFilter struct {
	AccountID string
	Status    Status
	Limit     int
	Offset    int
}

// List returns tasks matching filter, sorted by CreatedAt ascending (the
// same tie-break order the scheduler uses for ready tasks, spec §5).
func (s *Store) List(filter ListFilter) []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TaskInfo
	for _, t := range s.tasks {
		if filter.AccountID != "" && t.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	sortByCreatedAt(out)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// AllPending returns every pending task, for the scheduler's ready-set scan.
func (s *Store) AllPending() []TaskInfo {
	return s.List(ListFilter{Status: StatusPending})
}

func sortByCreatedAt(tasks []TaskInfo) {
	for i := 1; i < len(tasks); i++ {
		j := i
		for j > 0 && tasks[j-1].CreatedAt.After(tasks[j].CreatedAt) {
			tasks[j-1], tasks[j] = tasks[j], tasks[j-1]
			j--
		}
	}
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func removeString(list []string, id string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
