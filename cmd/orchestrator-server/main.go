// Command orchestrator-server runs the AiMediaOps control plane: the
// scheduler loop and the HTTP API in front of it. Grounded on the
// teacher's cmd/alex/main.go graceful-shutdown idiom (signal.Notify,
// sync.Once shutdown, bounded drain timeout).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psdyuan2/AiMediaOps/internal/clock"
	"github.com/psdyuan2/AiMediaOps/internal/config"
	"github.com/psdyuan2/AiMediaOps/internal/contentgen"
	"github.com/psdyuan2/AiMediaOps/internal/cookie"
	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
	"github.com/psdyuan2/AiMediaOps/internal/httpapi"
	"github.com/psdyuan2/AiMediaOps/internal/license"
	"github.com/psdyuan2/AiMediaOps/internal/logcollector"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
	"github.com/psdyuan2/AiMediaOps/internal/resources"
	"github.com/psdyuan2/AiMediaOps/internal/runner"
	"github.com/psdyuan2/AiMediaOps/internal/scheduler"
	"github.com/psdyuan2/AiMediaOps/internal/sidecar"
	"github.com/psdyuan2/AiMediaOps/internal/sidecarclient"
	"github.com/psdyuan2/AiMediaOps/internal/telemetry"
)

type container struct {
	cfg       config.Config
	logger    logging.Logger
	scheduler *scheduler.Scheduler
	httpSrv   *http.Server
	metrics   *telemetry.Metrics
}

func buildContainer() (*container, error) {
	dataDirHint := os.Getenv("AMOPS_DATA_DIR")
	cfg, err := config.Load(dataDirHint)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger := logging.NewTextLogger(os.Stdout, "orchestrator", logging.ParseLevel(cfg.Logs.Level))
	clk := clock.System{}

	dispatcherStore := dispatcher.NewStore(filepath.Join(cfg.DataDir, "dispatcher", "dispatch_config.json"), clk, logger.Named("dispatcher"))
	if err := dispatcherStore.Load(); err != nil {
		return nil, fmt.Errorf("load dispatcher store: %w", err)
	}

	licenseStore := license.NewStore(
		filepath.Join(cfg.DataDir, "license_config.encrypted"),
		filepath.Join(cfg.DataDir, "license.key"),
		cfg.License.KeyEnvVar,
	)
	licenseActivator := license.NewRemoteActivator(cfg.License.ServiceURL)
	licenseGate := license.NewGate(licenseStore, licenseActivator)

	logCollector := logcollector.New(filepath.Join(cfg.DataDir, "logs"), cfg.Logs.MaxEntries, logger.Named("logcollector"))

	sidecarMgr := sidecar.New(cfg.Sidecar.Host, cfg.Sidecar.Port, filepath.Join(cfg.DataDir, "sidecar", "bin"), filepath.Join(cfg.DataDir, "sidecar", "work"), logger.Named("sidecar"))
	sidecarMgr.ReadinessWait = cfg.Sidecar.ReadinessWait

	cookieCourier := cookie.New(filepath.Join(cfg.DataDir, "task_data"), logger.Named("cookie"))
	resourceStore := resources.New(filepath.Join(cfg.DataDir, "task_data"))
	sidecarHTTP := sidecarclient.New(fmt.Sprintf("http://%s:%d", cfg.Sidecar.Host, cfg.Sidecar.Port), logger.Named("sidecarclient"))

	runDeps := runner.Deps{
		Tasks:     dispatcherStore,
		Logs:      logCollector,
		Sidecar:   sidecarMgr,
		Cookies:   cookieCourier,
		Client:    sidecarHTTP,
		Generator: contentgen.New(),
		Clock:     clk,
	}

	sched := scheduler.New(dispatcherStore, licenseGate, clk, runner.NewXHSRunner, runDeps, logger.Named("scheduler"))

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	sched.SetMetrics(metrics)

	if _, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	}); err != nil {
		return nil, fmt.Errorf("init tracer provider: %w", err)
	}

	apiServer := httpapi.NewServer(sched, dispatcherStore, licenseGate, logCollector, resourceStore, sidecarHTTP, logger.Named("httpapi")).
		WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router := httpapi.NewRouter(apiServer, cfg.HTTP.CORSOrigins)

	return &container{
		cfg:       cfg,
		logger:    logger,
		scheduler: sched,
		httpSrv:   &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: router},
		metrics:   metrics,
	}, nil
}

func (c *container) Start(ctx context.Context) {
	c.scheduler.Start(ctx)
	go func() {
		c.logger.Info("orchestrator-server listening on %s", c.httpSrv.Addr)
		if err := c.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("http server error: %v", err)
		}
	}()
}

func (c *container) Drain(ctx context.Context) error {
	if err := c.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	c.scheduler.Stop()
	return nil
}

func main() {
	c, err := buildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator-server: failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	var shutdownOnce sync.Once
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	shutdownOnce.Do(func() {
		cancel()
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer drainCancel()
		if err := c.Drain(drainCtx); err != nil {
			fmt.Fprintf(os.Stderr, "orchestrator-server: shutdown error: %v\n", err)
		}
	})
}
