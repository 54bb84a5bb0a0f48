// Package telemetry provides the Prometheus metrics that the scheduler loop
// updates and an OpenTelemetry tracer provider (C13); no spans are created
// by the scheduler loop or the control-plane HTTP handlers.
// Grounded on the teacher's go.opentelemetry.io/otel and
// github.com/prometheus/client_golang dependencies — both present in its
// go.mod with no retrievable call-site in the pack, wired here into the
// orchestrator's own run-duration and tick counters.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Metrics bundles the Prometheus collectors spec §4.13 names.
type Metrics struct {
	SchedulerTicks  prometheus.Counter
	TaskRuns        *prometheus.CounterVec
	TaskRunDuration prometheus.Histogram
	TasksByStatus   *prometheus.GaugeVec
}

// NewMetrics registers every collector against registry (use
// prometheus.NewRegistry() for test isolation, or
// prometheus.DefaultRegisterer in production).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		SchedulerTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Number of scheduler main-loop iterations.",
		}),
		TaskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "task_runs_total",
			Help: "Number of task run_once invocations, by outcome.",
		}, []string{"outcome"}),
		TaskRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "task_run_duration_seconds",
			Help:    "Duration of a single run_once invocation.",
			Buckets: prometheus.DefBuckets,
		}),
		TasksByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tasks_by_status",
			Help: "Current number of tasks in each status.",
		}, []string{"status"}),
	}
}

// ObserveRun records one run_once outcome and its wall-clock duration.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	m.TaskRuns.WithLabelValues(outcome).Inc()
	m.TaskRunDuration.Observe(d.Seconds())
}

// IncTick records one scheduler main-loop iteration.
func (m *Metrics) IncTick() {
	m.SchedulerTicks.Inc()
}

// SetTasksByStatus replaces the tasks_by_status gauge set with counts.
func (m *Metrics) SetTasksByStatus(counts map[string]int) {
	m.TasksByStatus.Reset()
	for status, n := range counts {
		m.TasksByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// Config selects the trace exporter (spec §4.13: otlp|jaeger|zipkin|none).
type Config struct {
	Exporter    string
	Endpoint    string
	ServiceName string
}

// NewTracerProvider builds a TracerProvider against the exporter named by
// cfg.Exporter. "none" (the default) yields a provider with no exporter
// attached — spans are created and discarded, so instrumented code doesn't
// need a conditional.
func NewTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	var opts []sdktrace.TracerProviderOption

	switch cfg.Exporter {
	case "", "none":
		// no exporter: spans are created and dropped.
	case "otlp":
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "jaeger":
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
		if err != nil {
			return nil, fmt.Errorf("telemetry: jaeger exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "zipkin":
		exp, err := zipkin.New(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("telemetry: zipkin exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("telemetry: unsupported exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the named tracer from the global provider, for
// instrumenting the scheduler loop and HTTP handlers.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
