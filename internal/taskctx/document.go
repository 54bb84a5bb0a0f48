// Package taskctx implements the per-task TaskContext document (spec §3,
// §4.2): a durable key-value "meta" blob plus an ordered step log, one
// document per task, written atomically on every mutation.
package taskctx

import "time"

// StepRecord is one entry in a document's step[] log.
type StepRecord struct {
	StepID    int64          `json:"step_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Data      map[string]any `json:"data"`
}

// Document is the full per-task context: free-form meta plus the ordered
// step log. StepID is the monotonic counter used to mint new step ids —
// it is NOT the length of Steps, since steps can in principle be pruned.
type Document struct {
	TaskID      string         `json:"task_id"`
	StepID      int64          `json:"step_id"`
	Meta        map[string]any `json:"meta"`
	Steps       []StepRecord   `json:"step"`
	LastUpdated time.Time      `json:"last_updated"`
}

func newDocument(taskID string, meta map[string]any, now time.Time) *Document {
	if meta == nil {
		meta = map[string]any{}
	}
	return &Document{
		TaskID:      taskID,
		StepID:      0,
		Meta:        meta,
		Steps:       nil,
		LastUpdated: now,
	}
}

// findStep returns the index of the step with the given id, or -1.
func (d *Document) findStep(stepID int64) int {
	for i := range d.Steps {
		if d.Steps[i].StepID == stepID {
			return i
		}
	}
	return -1
}
