package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for rootmcp.
// Uses a custom registry — no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Validation metrics.
	ValidationsTotal *prometheus.CounterVec

	// Execution metrics.
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	OutputBytes       *prometheus.HistogramVec

	// Cleanup metrics.
	WorkspacesDeleted prometheus.Counter

	// System metrics.
	ActiveExecutions prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		ValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootmcp",
			Subsystem: "sandbox",
			Name:      "validations_total",
			Help:      "Total static validations performed.",
		}, []string{"result"}),

		ExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootmcp",
			Subsystem: "executor",
			Name:      "executions_total",
			Help:      "Total sandboxed executions.",
		}, []string{"tool", "status"}),

		ExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rootmcp",
			Subsystem: "executor",
			Name:      "execution_duration_seconds",
			Help:      "Sandboxed execution duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"tool"}),

		OutputBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rootmcp",
			Subsystem: "executor",
			Name:      "output_bytes",
			Help:      "Captured stdout size per execution in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 8, 8),
		}, []string{"tool"}),

		WorkspacesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rootmcp",
			Subsystem: "cleanup",
			Name:      "workspaces_deleted_total",
			Help:      "Total workspaces removed by the cleanup sweeper.",
		}),

		ActiveExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rootmcp",
			Name:      "active_executions",
			Help:      "Number of currently running sandboxed executions.",
		}),
	}

	// Register all collectors.
	reg.MustRegister(
		m.ValidationsTotal,
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.OutputBytes,
		m.WorkspacesDeleted,
		m.ActiveExecutions,
	)

	return m
}
