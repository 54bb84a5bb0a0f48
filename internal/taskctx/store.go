package taskctx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/filestore"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
)

// ErrNotFound is returned by Load/Get when no document exists for a task id.
var ErrNotFound = errors.New("taskctx: document not found")

// Store persists one Document per task under baseDir/<task_id>.json, with
// every mutating call writing the full document atomically (write-to-temp-
// then-rename via internal/filestore). Grounded on the teacher's
// FileJobStore (internal/app/scheduler/jobstore_file.go): one file per
// entity, single writer lock, atomic write.
type Store struct {
	baseDir string
	logger  logging.Logger

	mu   sync.Mutex
	docs map[string]*Document // in-memory cache, guarded by mu
}

// NewStore returns a Store rooted at baseDir.
func NewStore(baseDir string, logger logging.Logger) *Store {
	return &Store{
		baseDir: baseDir,
		logger:  logging.OrNop(logger),
		docs:    make(map[string]*Document),
	}
}

func (s *Store) path(taskID string) string {
	return filepath.Join(s.baseDir, taskID+".json")
}

// CreateNew creates a fresh document for taskID with the given meta. If a
// document already exists on disk, CreateNew refuses to overwrite it: it
// logs a warning and falls back to Load, per spec §4.2.
func (s *Store) CreateNew(taskID string, meta map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(taskID)); err == nil {
		s.logger.Warn("taskctx: document already exists for task %s, loading instead of overwriting", taskID)
		return s.loadLocked(taskID)
	}

	doc := newDocument(taskID, meta, time.Now().UTC())
	if err := s.writeLocked(doc); err != nil {
		return nil, err
	}
	s.docs[taskID] = doc
	return cloneDoc(doc), nil
}

// Load reads the document for taskID, preferring the in-memory cache but
// always trusting what's on disk as the source of truth after a restart.
func (s *Store) Load(taskID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(taskID)
}

func (s *Store) loadLocked(taskID string) (*Document, error) {
	data, err := filestore.ReadFileOrEmpty(s.path(taskID))
	if err != nil {
		return nil, fmt.Errorf("taskctx: read: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("taskctx: unmarshal: %w", err)
	}
	s.docs[taskID] = &doc
	return cloneDoc(&doc), nil
}

// NextStep reserves and returns the next monotonic step id for taskID,
// persisting the incremented counter so it survives a restart even if the
// caller never ends up calling Save with it.
func (s *Store) NextStep(taskID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(taskID)
	if err != nil {
		return 0, err
	}
	doc.StepID++
	id := doc.StepID
	if err := s.writeLocked(doc); err != nil {
		return 0, err
	}
	return id, nil
}

// Save writes data as a step record. If stepID is nil, a new step id is
// minted and a new record is appended. If stepID is non-nil and a record
// with that id exists, it is updated in place; otherwise a new record is
// appended carrying that id (spec §3 invariant: "every save(data,
// step_id=s) either updates the existing record with that id or appends a
// new one").
func (s *Store) Save(taskID string, data map[string]any, stepID *int64) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id int64
	if stepID == nil {
		doc.StepID++
		id = doc.StepID
	} else {
		id = *stepID
		if id > doc.StepID {
			doc.StepID = id
		}
	}

	if idx := doc.findStep(id); idx >= 0 {
		doc.Steps[idx].Data = data
		doc.Steps[idx].UpdatedAt = now
	} else {
		doc.Steps = append(doc.Steps, StepRecord{
			StepID:    id,
			CreatedAt: now,
			UpdatedAt: now,
			Data:      data,
		})
	}

	if err := s.writeLocked(doc); err != nil {
		return nil, err
	}
	return cloneDoc(doc), nil
}

// UpdateMeta merges fields into the document's meta map.
func (s *Store) UpdateMeta(taskID string, fields map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(taskID)
	if err != nil {
		return nil, err
	}
	if doc.Meta == nil {
		doc.Meta = map[string]any{}
	}
	for k, v := range fields {
		doc.Meta[k] = v
	}
	if err := s.writeLocked(doc); err != nil {
		return nil, err
	}
	return cloneDoc(doc), nil
}

// Get resolves a dot-separated path against the document. A path beginning
// "step.<n>." selects the record with that step id before resolving the
// remaining segments against its Data; otherwise the path is resolved
// against Meta.
func (s *Store) Get(taskID, path string, stepID *int64) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(taskID)
	if err != nil {
		return nil, err
	}

	segments := strings.Split(path, ".")
	if len(segments) >= 2 && segments[0] == "step" {
		n, convErr := strconv.ParseInt(segments[1], 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("taskctx: invalid step path %q: %w", path, convErr)
		}
		idx := doc.findStep(n)
		if idx < 0 {
			return nil, fmt.Errorf("taskctx: no step %d for task %s", n, taskID)
		}
		return resolvePath(doc.Steps[idx].Data, segments[2:])
	}

	if stepID != nil {
		idx := doc.findStep(*stepID)
		if idx < 0 {
			return nil, fmt.Errorf("taskctx: no step %d for task %s", *stepID, taskID)
		}
		return resolvePath(doc.Steps[idx].Data, segments)
	}

	return resolvePath(doc.Meta, segments)
}

func resolvePath(m map[string]any, segments []string) (any, error) {
	var cur any = m
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		asMap, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("taskctx: path segment %q is not a map", seg)
		}
		v, ok := asMap[seg]
		if !ok {
			return nil, fmt.Errorf("taskctx: no value at %q", seg)
		}
		cur = v
	}
	return cur, nil
}

func (s *Store) writeLocked(doc *Document) error {
	doc.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("taskctx: marshal: %w", err)
	}
	if err := filestore.AtomicWrite(s.path(doc.TaskID), data, 0o644); err != nil {
		return fmt.Errorf("taskctx: write: %w", err)
	}
	s.docs[doc.TaskID] = doc
	return nil
}

// Purge deletes the document file for taskID entirely. Called by the
// scheduler when a task is removed (spec §4.9 Pause/Resume/Remove).
func (s *Store) Purge(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, taskID)
	err := os.Remove(s.path(taskID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("taskctx: purge: %w", err)
	}
	return nil
}

func cloneDoc(d *Document) *Document {
	cp := *d
	cp.Meta = cloneAny(d.Meta).(map[string]any)
	cp.Steps = append([]StepRecord(nil), d.Steps...)
	return &cp
}

func cloneAny(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
