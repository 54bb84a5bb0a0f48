package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/scheduler"
)

// windowJSON is the wire shape of clock.Window (spec §6's valid_time_range).
type windowJSON struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

func (w windowJSON) toWindow() *clock.Window {
	return &clock.Window{StartHour: w.StartHour, EndHour: w.EndHour}
}

func taskToJSON(t dispatcher.TaskInfo) gin.H {
	var window any
	if t.ValidTimeRange != nil {
		window = windowJSON{StartHour: t.ValidTimeRange.StartHour, EndHour: t.ValidTimeRange.EndHour}
	}
	return gin.H{
		"task_id":                 t.TaskID,
		"account_id":              t.AccountID,
		"account_name":            t.AccountName,
		"task_type":               t.TaskType,
		"sys_type":                t.SysType,
		"status":                  t.Status,
		"mode":                    t.Mode,
		"interval_seconds":        t.IntervalSeconds,
		"valid_time_range":        window,
		"task_end_time":           zeroableTime(t.TaskEndTime),
		"interaction_note_count":  t.InteractionNoteCount,
		"last_execution_time":     t.LastExecutionTime,
		"next_execution_time":     t.NextExecutionTime,
		"created_at":              t.CreatedAt,
		"updated_at":              t.UpdatedAt,
		"login_status":            t.LoginStatus,
		"login_status_checked_at": t.LoginStatusCheckedAt,
		"retry_count":             t.RetryCount,
		"last_error":              t.LastError,
		"kwargs":                  t.Kwargs,
	}
}

func zeroableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

type createTaskRequest struct {
	SysType              string      `json:"sys_type"`
	TaskType             string      `json:"task_type"`
	AccountID            string      `json:"xhs_account_id"`
	AccountName          string      `json:"xhs_account_name"`
	TaskEndTime          *time.Time  `json:"task_end_time"`
	IntervalSeconds      *int        `json:"interval"`
	ValidTimeRange       *windowJSON `json:"valid_time_range"`
	Mode                 string      `json:"mode"`
	InteractionNoteCount int         `json:"interaction_note_count"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON body"})
		return
	}
	rawBytes, _ := json.Marshal(raw)
	var req createTaskRequest
	if err := json.Unmarshal(rawBytes, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	spec := scheduler.TaskCreationSpec{
		TaskType:             dispatcher.TaskType(req.TaskType),
		AccountID:            req.AccountID,
		AccountName:          req.AccountName,
		SysType:              req.SysType,
		IntervalSeconds:      7200,
		Mode:                 dispatcher.ModeStandard,
		InteractionNoteCount: req.InteractionNoteCount,
		Kwargs:               raw,
	}
	if req.TaskType == "" {
		spec.TaskType = dispatcher.TaskTypeXHSContent
	}
	if req.Mode != "" {
		spec.Mode = dispatcher.Mode(req.Mode)
	}
	if req.IntervalSeconds != nil {
		spec.IntervalSeconds = *req.IntervalSeconds
	}
	if req.ValidTimeRange != nil {
		spec.ValidTimeRange = req.ValidTimeRange.toWindow()
	}
	if req.TaskEndTime != nil {
		spec.TaskEndTime = *req.TaskEndTime
	}

	task, err := s.Scheduler.AddTask(spec)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "task": taskToJSON(task)})
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := dispatcher.ListFilter{
		AccountID: c.Query("account_id"),
		Status:    dispatcher.Status(c.Query("status")),
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit = parseIntOr(v, 0)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset = parseIntOr(v, 0)
	}

	tasks := s.Tasks.List(filter)
	out := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": out})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.Tasks.Get(c.Param("id"))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": taskToJSON(task)})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.Scheduler.Remove(c.Param("id")); err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type patchTaskRequest struct {
	IntervalSeconds      *int        `json:"interval"`
	ValidTimeRange       *windowJSON `json:"valid_time_range"`
	TaskEndTime          *time.Time  `json:"task_end_time"`
	Mode                 *string     `json:"mode"`
	InteractionNoteCount *int        `json:"interaction_note_count"`
	AccountName          *string     `json:"xhs_account_name"`
	Kwargs               map[string]any `json:"kwargs"`
}

func (s *Server) handlePatchTask(c *gin.Context) {
	var req patchTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	edit := scheduler.TaskEdit{
		IntervalSeconds:      req.IntervalSeconds,
		TaskEndTime:          req.TaskEndTime,
		InteractionNoteCount: req.InteractionNoteCount,
		AccountName:          req.AccountName,
		Kwargs:               req.Kwargs,
	}
	if req.ValidTimeRange != nil {
		w := req.ValidTimeRange.toWindow()
		edit.ValidTimeRange = &w
	}
	if req.Mode != nil {
		m := dispatcher.Mode(*req.Mode)
		edit.Mode = &m
	}

	task, err := s.Scheduler.UpdateTask(c.Param("id"), edit)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": taskToJSON(task)})
}

func (s *Server) handlePauseTask(c *gin.Context) {
	task, err := s.Scheduler.Pause(c.Param("id"))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": taskToJSON(task)})
}

func (s *Server) handleResumeTask(c *gin.Context) {
	task, err := s.Scheduler.Resume(c.Param("id"))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": taskToJSON(task)})
}

type reorderRequest struct {
	PriorityOffset int `json:"priority_offset"`
}

func (s *Server) handleReorderTask(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	task, err := s.Scheduler.ReorderTask(c.Param("id"), time.Duration(req.PriorityOffset)*time.Second)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": taskToJSON(task)})
}

type executeRequest struct {
	UpdateNextExecutionTime bool `json:"update_next_execution_time"`
}

func (s *Server) handleExecuteTask(c *gin.Context) {
	var req executeRequest
	_ = c.ShouldBindJSON(&req)

	taskID := c.Param("id")
	before, err := s.Tasks.Get(taskID)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	priorNext := before.NextExecutionTime

	task, err := s.Scheduler.ExecuteTaskImmediately(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}

	if !req.UpdateNextExecutionTime && task.Status == dispatcher.StatusPending {
		restored, restoreErr := s.Tasks.Update(taskID, func(t *dispatcher.TaskInfo) error {
			t.NextExecutionTime = priorNext
			return nil
		})
		if restoreErr == nil {
			task = restored
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": taskToJSON(task)})
}

func parseIntOr(s string, def int) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
