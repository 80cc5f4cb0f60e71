package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rootmcp/rootmcp/internal/executor"
)

// CodeExecutor is the subset of the executor that gets instrumented.
type CodeExecutor interface {
	Execute(ctx context.Context, req executor.Request) *executor.Result
}

// InstrumentedExecutor wraps a CodeExecutor with metrics and tracing.
// Safe to use with nil metrics and nil tracer: it degrades to a passthrough
// that only attributes the tool name.
type InstrumentedExecutor struct {
	inner   CodeExecutor
	metrics *MetricsCollector
	tracer  trace.Tracer
}

// NewInstrumentedExecutor wraps an executor with observability.
func NewInstrumentedExecutor(inner CodeExecutor, metrics *MetricsCollector, ts *TracerSetup) *InstrumentedExecutor {
	var tracer trace.Tracer
	if ts != nil {
		tracer = ts.Tracer()
	}
	return &InstrumentedExecutor{
		inner:   inner,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Run executes the request, attributing metrics and the span to the tool.
func (e *InstrumentedExecutor) Run(ctx context.Context, tool string, req executor.Request) *executor.Result {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "sandbox.execute",
			trace.WithAttributes(
				attribute.String("tool.name", tool),
				attribute.Int("code.length", len(req.Code)),
			))
		defer span.End()
	}

	if e.metrics != nil {
		e.metrics.ActiveExecutions.Inc()
		defer e.metrics.ActiveExecutions.Dec()
	}

	result := e.inner.Execute(ctx, req)

	if e.tracer != nil {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("execution.status", result.Status))
		if result.Status != executor.StatusSuccess {
			span.SetStatus(codes.Error, result.Error)
		}
	}

	if e.metrics != nil {
		e.metrics.ExecutionsTotal.WithLabelValues(tool, result.Status).Inc()
		if !req.SkipValidation {
			verdict := "passed"
			if result.Status == executor.StatusValidationFailed {
				verdict = "rejected"
			}
			e.metrics.ValidationsTotal.WithLabelValues(verdict).Inc()
		}
		if result.Status != executor.StatusValidationFailed {
			e.metrics.ExecutionDuration.WithLabelValues(tool).Observe(result.ExecutionTimeSeconds)
			e.metrics.OutputBytes.WithLabelValues(tool).Observe(float64(len(result.Stdout)))
		}
	}

	return result
}
