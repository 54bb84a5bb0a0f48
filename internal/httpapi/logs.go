package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psdyuan2/AiMediaOps/internal/logcollector"
)

func (s *Server) handleGetLogs(c *gin.Context) {
	filter := logcollector.GetLogsFilter{
		Level: logcollector.Level(c.Query("level")),
	}
	if v := c.Query("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &t
		}
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit = parseIntOr(v, 0)
	}

	entries, err := s.Logs.GetLogs(c.Param("id"), logcollector.TaskLogBindType, filter)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": entries})
}
