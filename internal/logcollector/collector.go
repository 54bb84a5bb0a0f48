package logcollector

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/psdyuan2/AiMediaOps/internal/filestore"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
)

// DefaultMaxEntries is the per-(task_id,bindtype) rolling cap (spec §3:
// "capped at N=1000 entries (rolling)").
const DefaultMaxEntries = 1000

// Collector is the concurrent-safe log buffer described in spec §4.5.
// Grounded on the teacher's hashicorp/golang-lru dependency for the
// in-memory hot cache fronting the JSONL files, and on
// internal/infra/filestore's atomic-write discipline for the files
// themselves.
type Collector struct {
	baseDir    string
	maxEntries int
	logger     logging.Logger

	mu    sync.Mutex // single writer across all files, per spec §5
	cache *lru.Cache[string, []Entry]
}

// New returns a Collector rooted at baseDir, capping each (task_id,
// bindtype) stream at maxEntries (DefaultMaxEntries if <= 0).
func New(baseDir string, maxEntries int, logger logging.Logger) *Collector {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cache, _ := lru.New[string, []Entry](256)
	return &Collector{
		baseDir:    baseDir,
		maxEntries: maxEntries,
		logger:     logging.OrNop(logger),
		cache:      cache,
	}
}

func cacheKey(taskID, bindtype string) string { return bindtype + "\x00" + taskID }

func (c *Collector) filePath(taskID, bindtype string) string {
	return filepath.Join(c.baseDir, bindtype, taskID+".jsonl")
}

// AddLog appends entry to its (task_id, bindtype) file, then truncates the
// file to its last maxEntries entries.
func (c *Collector) AddLog(entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.readLocked(entry.TaskID, entry.BindType)
	if err != nil {
		c.logger.Warn("logcollector: reading existing entries for %s/%s: %v", entry.BindType, entry.TaskID, err)
		entries = nil
	}
	entries = append(entries, entry)
	if len(entries) > c.maxEntries {
		entries = entries[len(entries)-c.maxEntries:]
	}

	if err := c.writeLocked(entry.TaskID, entry.BindType, entries); err != nil {
		return err
	}
	return nil
}

// GetLogsFilter narrows a GetLogs call.
type GetLogsFilter struct {
	Since *time.Time
	Level Level // minimum level
	Limit int    // 0 means unbounded
}

// GetLogs returns entries for (taskID, bindtype) in chronological order. If
// Limit is set, the newest Limit matching entries are returned (still
// chronological).
func (c *Collector) GetLogs(taskID, bindtype string, filter GetLogsFilter) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.readLocked(taskID, bindtype)
	if err != nil {
		return nil, err
	}

	var filtered []Entry
	for _, e := range entries {
		if filter.Since != nil && !e.Timestamp.After(*filter.Since) {
			continue
		}
		if !e.Level.atLeast(filter.Level) {
			continue
		}
		filtered = append(filtered, e)
	}

	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[len(filtered)-filter.Limit:]
	}
	return filtered, nil
}

// RemoveTaskLogs deletes every bindtype file for taskID.
func (c *Collector) RemoveTaskLogs(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("logcollector: readdir: %w", err)
	}

	for _, bindDir := range entries {
		if !bindDir.IsDir() {
			continue
		}
		path := c.filePath(taskID, bindDir.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("logcollector: remove %s: %w", path, err)
		}
		c.cache.Remove(cacheKey(taskID, bindDir.Name()))
	}
	return nil
}

func (c *Collector) readLocked(taskID, bindtype string) ([]Entry, error) {
	key := cacheKey(taskID, bindtype)
	if cached, ok := c.cache.Get(key); ok {
		return append([]Entry(nil), cached...), nil
	}

	data, err := filestore.ReadFileOrEmpty(c.filePath(taskID, bindtype))
	if err != nil {
		return nil, fmt.Errorf("logcollector: read: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			c.logger.Warn("logcollector: skipping corrupt line in %s/%s: %v", bindtype, taskID, err)
			continue
		}
		entries = append(entries, e)
	}
	c.cache.Add(key, append([]Entry(nil), entries...))
	return entries, nil
}

func (c *Collector) writeLocked(taskID, bindtype string, entries []Entry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("logcollector: marshal entry: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := filestore.AtomicWrite(c.filePath(taskID, bindtype), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("logcollector: write: %w", err)
	}
	c.cache.Add(cacheKey(taskID, bindtype), append([]Entry(nil), entries...))
	return nil
}
