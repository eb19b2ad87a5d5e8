package scm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gitscm/pkg/observability"
)

const spanPrefix = "scm."

// Operation names used for spans and metrics.
const (
	OpBlame              = "blame"
	OpBranchChangedFiles = "branch_changed_files"
	OpBranchChangedLines = "branch_changed_lines"
	OpForkPoint          = "fork_point"
	OpRelativePath       = "relative_path"
	OpRevisionID         = "revision_id"
	OpIgnoreFilter       = "ignore_filter"
)

// operation is one traced and measured provider call.
type operation struct {
	name    string
	span    trace.Span
	metrics *observability.SCMMetrics
	start   time.Time
	// failed is an error the caller turned into an empty answer.
	failed error
}

func (p *Provider) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *operation) {
	ctx, span := p.tracer.Start(ctx, spanPrefix+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	return ctx, &operation{name: name, span: span, metrics: p.metrics, start: time.Now()}
}

// end closes the span and records the outcome.
func (o *operation) end(ctx context.Context, err error) {
	status := observability.StatusOK

	if err == nil {
		err = o.failed
	}

	if err != nil {
		status = observability.StatusError

		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}

	o.finish(ctx, status)
}

// unavailable closes an operation the host version cannot use.
func (o *operation) unavailable(ctx context.Context) {
	o.span.SetAttributes(attribute.Bool("scm.unavailable", true))
	o.finish(ctx, observability.StatusUnavailable)
}

func (o *operation) finish(ctx context.Context, status string) {
	o.metrics.RecordOperation(ctx, o.name, status, time.Since(o.start))
	o.span.End()
}
