package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

const (
	metricOperationsTotal   = "gitscm.operations.total"
	metricOperationDuration = "gitscm.operation.duration.seconds"
	metricErrorsTotal       = "gitscm.errors.total"
	metricBlamedFiles       = "gitscm.blame.files.total"
	metricMissingFiles      = "gitscm.blame.missing.total"

	attrOp     = "op"
	attrStatus = "status"

	// StatusOK marks a successful operation.
	StatusOK = "ok"
	// StatusError marks a failed operation.
	StatusError = "error"
	// StatusUnavailable marks an operation the host version does not support.
	StatusUnavailable = "unavailable"
)

// durationBucketBoundaries covers 1ms ref lookups up to multi-minute blames of
// large trees.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// SCMMetrics holds the instruments recorded by the scm provider.
type SCMMetrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	errors     metric.Int64Counter
	blamed     metric.Int64Counter
	missing    metric.Int64Counter
}

// NewSCMMetrics creates the instruments from mt. A nil meter uses a no-op one.
func NewSCMMetrics(mt metric.Meter) (*SCMMetrics, error) {
	if mt == nil {
		mt = noopmetric.NewMeterProvider().Meter(instrumentationName)
	}

	ops, err := mt.Int64Counter(metricOperationsTotal,
		metric.WithDescription("Total number of scm operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOperationsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricOperationDuration,
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOperationDuration, err)
	}

	errs, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	blamed, err := mt.Int64Counter(metricBlamedFiles,
		metric.WithDescription("Files that received blame information"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBlamedFiles, err)
	}

	missing, err := mt.Int64Counter(metricMissingFiles,
		metric.WithDescription("Files left without blame information"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMissingFiles, err)
	}

	return &SCMMetrics{
		operations: ops,
		duration:   duration,
		errors:     errs,
		blamed:     blamed,
		missing:    missing,
	}, nil
}

// RecordOperation records a completed operation. Safe on a nil receiver.
func (m *SCMMetrics) RecordOperation(ctx context.Context, op, status string, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)

	if status == StatusError {
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// RecordBlame records how many files of a blame run got results. Safe on a
// nil receiver.
func (m *SCMMetrics) RecordBlame(ctx context.Context, blamed, missing int) {
	if m == nil {
		return
	}

	m.blamed.Add(ctx, int64(blamed))
	m.missing.Add(ctx, int64(missing))
}
