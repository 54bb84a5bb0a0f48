package logcollector

import (
	"fmt"
	"time"
)

// TaskLogger adapts a Collector into a per-task logging.Logger, tagging
// every line with task_id and a fixed bindtype. The task runner (C8) uses
// one of these (bindtype=task_log) so its output surfaces through the
// control-plane logs endpoint (spec §4.8, §6).
type TaskLogger struct {
	collector *Collector
	taskID    string
	bindtype  string
	module    string
	function  string
	now       func() time.Time
}

// NewTaskLogger returns a TaskLogger writing into collector for taskID.
func NewTaskLogger(collector *Collector, taskID, bindtype, module string) *TaskLogger {
	return &TaskLogger{
		collector: collector,
		taskID:    taskID,
		bindtype:  bindtype,
		module:    module,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithFunction returns a copy tagged with a different function name, for a
// call site that wants finer-grained attribution without a new Collector
// wiring.
func (l *TaskLogger) WithFunction(function string) *TaskLogger {
	cp := *l
	cp.function = function
	return &cp
}

func (l *TaskLogger) emit(level Level, format string, args ...interface{}) {
	entry := Entry{
		Timestamp: l.now(),
		Level:     level,
		Module:    l.module,
		Function:  l.function,
		Message:   fmt.Sprintf(format, args...),
		TaskID:    l.taskID,
		BindType:  l.bindtype,
	}
	_ = l.collector.AddLog(entry)
}

func (l *TaskLogger) Debug(format string, args ...interface{}) { l.emit(LevelDebug, format, args...) }
func (l *TaskLogger) Info(format string, args ...interface{})  { l.emit(LevelInfo, format, args...) }
func (l *TaskLogger) Warn(format string, args ...interface{})  { l.emit(LevelWarning, format, args...) }
func (l *TaskLogger) Error(format string, args ...interface{}) { l.emit(LevelError, format, args...) }
