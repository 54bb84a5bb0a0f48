package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

func (s *Server) handleDispatcherStatus(c *gin.Context) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	counts := map[dispatcher.Status]int{}
	for _, t := range s.Tasks.List(dispatcher.ListFilter{}) {
		counts[t.Status]++
	}

	var runningTask any
	if id, ok := s.Scheduler.RunningTask(); ok {
		if t, err := s.Tasks.Get(id); err == nil {
			runningTask = taskToJSON(t)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"running":      running,
		"counts":       counts,
		"running_task": runningTask,
	})
}

func (s *Server) handleDispatcherStart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		c.JSON(http.StatusOK, gin.H{"success": true, "already_running": true})
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.runCancel = cancel
	s.running = true
	s.Scheduler.Start(ctx)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDispatcherStop(c *gin.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"success": true, "already_stopped": true})
		return
	}
	cancel := s.runCancel
	s.running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.Scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDispatcherMetrics(c *gin.Context) {
	counts := map[dispatcher.Status]int{}
	for _, t := range s.Tasks.List(dispatcher.ListFilter{}) {
		counts[t.Status]++
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks_by_status": counts})
}
