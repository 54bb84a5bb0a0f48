package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRunIncrementsCounterByOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.ObserveRun("success", 50*time.Millisecond)
	m.ObserveRun("error", 10*time.Millisecond)
	m.ObserveRun("success", 20*time.Millisecond)

	assert.Equal(t, float64(2), counterValue(t, m.TaskRuns.WithLabelValues("success")))
	assert.Equal(t, float64(1), counterValue(t, m.TaskRuns.WithLabelValues("error")))
}

func TestIncTickIncrementsSchedulerTicks(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.IncTick()
	m.IncTick()

	assert.Equal(t, float64(2), counterValue(t, m.SchedulerTicks))
}

func TestSetTasksByStatusReplacesGaugeSet(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.SetTasksByStatus(map[string]int{"pending": 3, "paused": 1})
	assert.Equal(t, float64(3), gaugeValue(t, m.TasksByStatus.WithLabelValues("pending")))

	m.SetTasksByStatus(map[string]int{"pending": 1})
	assert.Equal(t, float64(1), gaugeValue(t, m.TasksByStatus.WithLabelValues("pending")))
	assert.Equal(t, float64(0), gaugeValue(t, m.TasksByStatus.WithLabelValues("paused")))
}

func TestNewTracerProviderNoneExporterSucceeds(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Exporter: "none"})
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestNewTracerProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracerProvider(context.Background(), Config{Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
