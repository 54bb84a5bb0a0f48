// Package httpapi implements the control-plane API (C10): a thin JSON
// translation layer over the dispatcher, scheduler, license gate, and log
// collector, grounded on the teacher's gin dependency (present in its
// go.mod even though its own delivery layer happens to use stdlib
// net/http) and its error_mapper.go / http_util.go conventions.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/license"
	"github.com/psdyuan2/AiMediaOps/internal/logcollector"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
	"github.com/psdyuan2/AiMediaOps/internal/resources"
	"github.com/psdyuan2/AiMediaOps/internal/scheduler"
)

// Version is the build version reported by GET /api/v1/health.
var Version = "dev"

// LoginClient is the narrow surface the login endpoints need from the
// sidecar (spec §6): producing a QR code, reporting current login state,
// and confirming a scan.
type LoginClient interface {
	QRCode(ctx context.Context, accountID string) ([]byte, error)
	LoginState(ctx context.Context, accountID string) (string, error)
	ConfirmLogin(ctx context.Context, accountID string) error
}

// Server bundles every collaborator the handlers need. Constructed once by
// cmd/orchestrator-server and injected — never a package-level singleton,
// per the teacher's APIHandler constructor convention.
type Server struct {
	Scheduler *scheduler.Scheduler
	Tasks     *dispatcher.Store
	License   *license.Gate
	Logs      *logcollector.Collector
	Resources *resources.Store
	Login     LoginClient
	Logger    logging.Logger
	StartedAt time.Time

	mu             sync.Mutex
	running        bool
	runCancel      context.CancelFunc
	metricsHandler http.Handler
}

// WithMetricsHandler attaches the Prometheus scrape handler (C13) to be
// mounted at GET /metrics by NewRouter.
func (s *Server) WithMetricsHandler(h http.Handler) *Server {
	s.metricsHandler = h
	return s
}

// NewServer constructs a Server. The scheduler is not started here —
// callers (either cmd/orchestrator-server at boot, or POST
// /api/v1/dispatcher/start) drive that explicitly, per spec §4.9's
// "the dispatcher can be started and stopped independently" contract.
func NewServer(sched *scheduler.Scheduler, tasks *dispatcher.Store, gate *license.Gate, logs *logcollector.Collector, resourceStore *resources.Store, login LoginClient, logger logging.Logger) *Server {
	return &Server{
		Scheduler: sched,
		Tasks:     tasks,
		License:   gate,
		Logs:      logs,
		Resources: resourceStore,
		Login:     login,
		Logger:    logging.OrNop(logger),
		StartedAt: time.Now().UTC(),
	}
}

// NewRouter builds the gin.Engine with CORS, request logging, and every
// route from spec.md §6 plus the C12–C15 additions.
func NewRouter(s *Server, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		corsCfg.AllowOrigins = corsOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsCfg))

	if s.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	api := r.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)

		api.GET("/dispatcher/status", s.handleDispatcherStatus)
		api.POST("/dispatcher/start", s.handleDispatcherStart)
		api.POST("/dispatcher/stop", s.handleDispatcherStop)
		api.GET("/dispatcher/metrics", s.handleDispatcherMetrics)

		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.PATCH("/tasks/:id", s.handlePatchTask)
		api.POST("/tasks/:id/pause", s.handlePauseTask)
		api.POST("/tasks/:id/resume", s.handleResumeTask)
		api.POST("/tasks/:id/reorder", s.handleReorderTask)
		api.POST("/tasks/:id/execute", s.handleExecuteTask)

		api.GET("/tasks/:id/logs", s.handleGetLogs)
		api.GET("/tasks/:id/logs/stream", s.handleLogStream)

		api.GET("/tasks/:id/resources/source", s.handleGetSource)
		api.PUT("/tasks/:id/resources/source", s.handlePutSource)
		api.GET("/tasks/:id/resources/images", s.handleListImages)
		api.GET("/tasks/:id/resources/images/:filename", s.handleGetImage)
		api.POST("/tasks/:id/resources/source/upload", s.handleUploadSource)
		api.GET("/tasks/:id/resources/source/download", s.handleDownloadSource)

		api.GET("/tasks/:id/login/qrcode", s.handleLoginQRCode)
		api.GET("/tasks/:id/login/status", s.handleLoginStatus)
		api.POST("/tasks/:id/login/confirm", s.handleLoginConfirm)

		api.GET("/license/status", s.handleLicenseStatus)
		api.POST("/license/activate", s.handleLicenseActivate)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}
